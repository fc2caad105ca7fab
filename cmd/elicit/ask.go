package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/elicit"
	"github.com/aretw0/elicit/internal/config"
	"github.com/aretw0/elicit/internal/presentation/tui"
	"github.com/aretw0/elicit/pkg/domain"
)

var (
	askSessionID string
	askHeadless  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Start (or resume) an interactive clarification session",
	Long: `Ask starts a clarification session for the given prompt, walks you
through the clarifying questions interactively, and renders the final
answer. Interrupting the session is safe: rerun with --session to pick
up exactly where it suspended.`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "session ID (generated when omitted, reuse to resume)")
	askCmd.Flags().BoolVar(&askHeadless, "headless", false, "suppress the banner")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The interactive command defaults to durable local sessions.
	if flagStore == "" && os.Getenv("ELICIT_STORE_BACKEND") == "" {
		cfg.Store.Backend = config.BackendFile
	}
	logger := newLogger(cfg)

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer func() { _ = cleanup() }()
	}

	engine, err := newEngine(cfg, store, logger)
	if err != nil {
		return err
	}

	if !askHeadless {
		tui.PrintBanner(elicit.Version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := askSessionID
	reader := bufio.NewReader(os.Stdin)

	var res elicit.Result
	if sessionID != "" {
		// Resuming an existing session needs its pending questions back.
		if cp, loadErr := engine.Sessions().Load(ctx, sessionID); loadErr == nil {
			if cp.Terminal() {
				return renderAnswer(cp.State.Answer)
			}
			res = domain.Result{Status: domain.StatusSuspended, Payload: pendingPayload(cp)}
			fmt.Printf("Resuming session %s\n\n", sessionID)
		} else {
			res, err = startSession(ctx, engine, sessionID, args)
			if err != nil {
				return err
			}
		}
	} else {
		sessionID = uuid.NewString()
		fmt.Printf("Session %s (rerun with --session %s to resume)\n\n", sessionID, sessionID)
		res, err = startSession(ctx, engine, sessionID, args)
		if err != nil {
			return err
		}
	}

	for res.Status == domain.StatusSuspended {
		data, promptErr := collectResumeData(reader, res.Payload)
		if promptErr != nil {
			return promptErr
		}

		res, err = engine.Resume(ctx, sessionID, data)
		if err != nil {
			return err
		}
	}

	return renderAnswer(res.Answer)
}

func startSession(ctx context.Context, engine *elicit.Engine, sessionID string, args []string) (elicit.Result, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return elicit.Result{}, fmt.Errorf("a prompt is required to start a new session")
	}
	return engine.Start(ctx, sessionID, prompt, nil)
}

// pendingPayload reconstructs the suspend payload from a checkpoint, so
// a session interrupted in another process can re-display its questions.
func pendingPayload(cp *domain.Checkpoint) map[string]any {
	payload := map[string]any{
		"questions":          cp.State.StructuredQuestions,
		"answered_questions": cp.State.AnsweredQuestions,
	}
	if cp.NextNode == domain.NodeChoice {
		payload["reason"] = domain.SuspendReasonChoice
		payload["message"] = "Would you like me to ask more clarifying questions or generate the final answer?"
	} else {
		payload["reason"] = domain.SuspendReasonAnswers
		payload["message"] = "Please answer the clarifying questions to continue."
	}
	return payload
}

// collectResumeData interviews the user for the suspended node's
// expected fields.
func collectResumeData(reader *bufio.Reader, payload map[string]any) (map[string]any, error) {
	fmt.Println(payload["message"])
	fmt.Println()

	answered := answeredFromPayload(payload)

	questions, _ := payload["questions"].([]domain.StructuredQuestion)
	for _, q := range questions {
		fmt.Println(q.Text)
		if len(q.Options) > 0 {
			for i, opt := range q.Options {
				fmt.Printf("  %d) %s\n", i+1, opt)
			}
		}
		answer, err := readLine(reader)
		if err != nil {
			return nil, err
		}
		// A numeric reply selects the matching option.
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(q.Options) {
			answer = q.Options[n-1]
		}
		answered = append(answered, domain.AnsweredQuestion{Question: q.Text, Answer: answer})
	}

	data := map[string]any{
		domain.FieldAnsweredQuestions: answered,
	}

	if payload["reason"] == domain.SuspendReasonChoice {
		fmt.Print("Ask more clarifying questions? [y/N] ")
		more, err := readLine(reader)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(more, "y") || strings.EqualFold(more, "yes") {
			data[domain.FieldChoice] = string(domain.ChoiceMoreQuestions)
		} else {
			data[domain.FieldChoice] = string(domain.ChoiceFinalAnswer)
		}
	}

	fmt.Println()
	return data, nil
}

func answeredFromPayload(payload map[string]any) []domain.AnsweredQuestion {
	answered, _ := payload["answered_questions"].([]domain.AnsweredQuestion)
	return append([]domain.AnsweredQuestion(nil), answered...)
}

func readLine(reader *bufio.Reader) (string, error) {
	fmt.Print("> ")
	text, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func renderAnswer(answer string) error {
	render := tui.NewRenderer()
	out, err := render(answer)
	if err != nil {
		fmt.Println(answer)
		return nil
	}
	fmt.Println(out)
	return nil
}
