package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored session IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openConfiguredStore()
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer func() { _ = cleanup() }()
		}

		sessions, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, id := range sessions {
			fmt.Println(id)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a session's checkpoint as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openConfiguredStore()
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer func() { _ = cleanup() }()
		}

		cp, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cp)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openConfiguredStore()
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer func() { _ = cleanup() }()
		}

		if _, err := store.Load(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	rootCmd.AddCommand(sessionCmd)
}
