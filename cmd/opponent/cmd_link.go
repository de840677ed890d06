package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opponent/internal/pipeline"
)

var linkFlags struct {
	maxLinks int
}

var linkCmd = &cobra.Command{
	Use:   "link <note-path>",
	Short: "Suggest links from a note to related notes in the vault",
	Args:  cobra.ExactArgs(1),
	RunE:  runLink,
}

func init() {
	linkCmd.Flags().IntVar(&linkFlags.maxLinks, "max", 0, "Maximum suggestions (0 uses the configured default)")
}

func runLink(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	notePath := args[0]
	content, err := os.ReadFile(notePath)
	if err != nil {
		return fmt.Errorf("read note: %w", err)
	}

	p, err := pipeline.NewLinking(a.retriever, a.cfg.Retrieval.MaxLinks)
	if err != nil {
		return err
	}

	state, err := p.Run(cmd.Context(), pipeline.LinkingInput{
		NotePath:    notePath,
		NoteContent: string(content),
		MaxLinks:    linkFlags.maxLinks,
	})
	if err != nil {
		return fmt.Errorf("suggest links: %w", err)
	}

	fmt.Println(*state.Summary)
	return nil
}
