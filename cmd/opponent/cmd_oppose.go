package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"opponent/internal/pipeline"
)

var opposeFlags struct {
	claimContext string
	maxEvidence  int
}

var opposeCmd = &cobra.Command{
	Use:   "oppose <claim>",
	Short: "Challenge a claim with counter-evidence from the vault",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOppose,
}

func init() {
	f := opposeCmd.Flags()
	f.StringVar(&opposeFlags.claimContext, "context", "", "Extra context for the claim")
	f.IntVar(&opposeFlags.maxEvidence, "max", 0, "Maximum evidence items (0 uses the configured default)")
}

func runOppose(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	p, err := pipeline.NewOpposition(a.retriever, a.gen, a.cfg.Retrieval.MaxEvidence)
	if err != nil {
		return err
	}

	state, err := p.Run(cmd.Context(), pipeline.OppositionInput{
		Claim:       strings.Join(args, " "),
		Context:     opposeFlags.claimContext,
		MaxEvidence: opposeFlags.maxEvidence,
	})
	if err != nil {
		return fmt.Errorf("oppose claim: %w", err)
	}

	fmt.Println("## Summary")
	fmt.Println(*state.Summary)
	fmt.Println()
	fmt.Println("## Analysis")
	fmt.Println(*state.Analysis)
	if len(state.Evidence) > 0 {
		fmt.Println()
		fmt.Println("## Evidence")
		for i, e := range state.Evidence {
			fmt.Printf("%d. %s (%s)  score=%.1f\n", i+1, e.Source, e.Path, e.Score)
		}
	}
	return nil
}
