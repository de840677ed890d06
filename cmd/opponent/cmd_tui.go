package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"opponent/internal/pipeline"
	"opponent/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive opposition session",
	RunE:  runTUI,
}

// opponentAdapter bridges the opposition pipeline to the TUI port.
type opponentAdapter struct {
	ctx context.Context
	p   *pipeline.Opposition
}

func (o opponentAdapter) Oppose(claim string) (tui.Verdict, error) {
	state, err := o.p.Run(o.ctx, pipeline.OppositionInput{Claim: claim})
	if err != nil {
		return tui.Verdict{}, err
	}
	v := tui.Verdict{}
	if state.Summary != nil {
		v.Summary = *state.Summary
	}
	if state.Analysis != nil {
		v.Analysis = *state.Analysis
	}
	for _, e := range state.Evidence {
		v.Evidence = append(v.Evidence, tui.Evidence{
			Source:  e.Source,
			Path:    e.Path,
			Content: e.Content,
			Score:   e.Score,
		})
	}
	return v, nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	p, err := pipeline.NewOpposition(a.retriever, a.gen, a.cfg.Retrieval.MaxEvidence)
	if err != nil {
		return err
	}

	info := fmt.Sprintf("Vault: %s.", a.cfg.VaultPath)
	m := tui.New(opponentAdapter{ctx: cmd.Context(), p: p}, info)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return err
	}
	return nil
}
