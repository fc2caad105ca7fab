package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner with the version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String("       _ _      _ _   ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("   ___| (_) ___(_) |_ ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("  / _ \\ | |/ __| | __|").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(" |  __/ | | (__| | |_ ").Foreground(p.Color("#e879f9"))
	s5 := termenv.String("  \\___|_|_|\\___|_|\\__|").Foreground(p.Color("#f472b6"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Printf("  %s\n\n", strings.TrimSpace(version))
}
