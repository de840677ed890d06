package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"opponent/internal/pipeline"
)

var noteFlags struct {
	interesting string
	remindsMe   string
	similar     string
	different   string
	important   string
	internet    bool
	outDir      string
}

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Synthesize the five reflections into a formatted vault note",
	RunE:  runNote,
}

func init() {
	f := noteCmd.Flags()
	f.StringVar(&noteFlags.interesting, "interesting", "", "What was interesting (required)")
	f.StringVar(&noteFlags.remindsMe, "reminds-me", "", "What it reminds you of (required)")
	f.StringVar(&noteFlags.similar, "similar", "", "Why it is similar (required)")
	f.StringVar(&noteFlags.different, "different", "", "Why it is different (required)")
	f.StringVar(&noteFlags.important, "important", "", "Why it matters (required)")
	f.BoolVar(&noteFlags.internet, "internet", false, "Suggest external resources (needs model access to trained knowledge)")
	f.StringVar(&noteFlags.outDir, "out", "", "Output directory (defaults to the vault)")
}

func runNote(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	p, err := pipeline.NewSynthesis(a.gen)
	if err != nil {
		return err
	}

	state, err := p.Run(cmd.Context(), pipeline.SynthesisInput{
		Interesting:      noteFlags.interesting,
		RemindsMe:        noteFlags.remindsMe,
		SimilarBecause:   noteFlags.similar,
		DifferentBecause: noteFlags.different,
		ImportantBecause: noteFlags.important,
		HasInternet:      noteFlags.internet,
	})
	if err != nil {
		return fmt.Errorf("synthesize note: %w", err)
	}

	outDir := noteFlags.outDir
	if outDir == "" {
		outDir = a.cfg.VaultPath
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	outPath := filepath.Join(outDir, state.FileName)
	if err := os.WriteFile(outPath, []byte(*state.FinalOutput), 0o644); err != nil {
		return fmt.Errorf("write note: %w", err)
	}

	// Make the fresh note immediately retrievable.
	if err := a.indexer.UpdateDocument(cmd.Context(), outPath, *state.FinalOutput); err != nil {
		return fmt.Errorf("index new note: %w", err)
	}

	fmt.Printf("Wrote %s\n", outPath)
	return nil
}
