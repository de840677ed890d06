// opponent is the main CLI: index a markdown vault, synthesize reflection
// notes, suggest links, and challenge claims with counter-evidence.
//
// Usage:
//
//	opponent index [--vault=<path>]
//	opponent note --interesting=... --reminds-me=... --similar=... --different=... --important=... [--internet]
//	opponent link <note-path> [--max=<n>]
//	opponent oppose <claim> [--context=...] [--max=<n>]
//	opponent tui
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
