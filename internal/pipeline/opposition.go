package pipeline

import (
	"context"
	"fmt"
	"strings"

	"opponent/internal/domain"
	"opponent/internal/retrieval"
	"opponent/internal/workflow"
)

// maxClaimChars bounds how much of the claim is echoed into the summary
// prompt.
const maxClaimChars = 500

// Fixed degrade messages for runs where no evidence or analysis exists.
const (
	noCounterEvidenceMessage = "No counter-evidence found in your knowledge base. " +
		"The claim may be novel, or your vault lacks opposing perspectives."
	noAnalysisMessage = "No analysis available"
)

// OppositionInput is the claim to challenge. MaxEvidence of 0 takes the
// pipeline default.
type OppositionInput struct {
	Claim       string
	Context     string
	MaxEvidence int
}

// Evidence is one piece of retrieved counter-material, cited by source.
type Evidence struct {
	Content string
	Source  string
	Path    string
	Score   float64
}

// OppositionState is the record carried through one opposition run.
type OppositionState struct {
	OppositionInput

	Evidence []Evidence
	Analysis *string
	Summary  *string
}

// Opposition challenges a claim with evidence-based counter-arguments
// drawn from the vault.
type Opposition struct {
	retriever   *retrieval.Engine
	gen         domain.Generator
	maxEvidence int
	graph       *workflow.CompiledGraph[OppositionState]
}

// NewOpposition builds and compiles the opposition workflow.
func NewOpposition(retriever *retrieval.Engine, gen domain.Generator, defaultMax int) (*Opposition, error) {
	if defaultMax <= 0 {
		defaultMax = 5
	}
	p := &Opposition{retriever: retriever, gen: gen, maxEvidence: defaultMax}

	g := workflow.New[OppositionState]()
	g.RegisterNode("validate_input", p.validateInput)
	g.RegisterNode("retrieve_counter_evidence", p.retrieveCounterEvidence)
	g.RegisterNode("analyze_arguments", p.analyzeArguments)
	g.RegisterNode("summarize_opposition", p.summarizeOpposition)
	g.SetEntry("validate_input")
	g.AddEdge("validate_input", "retrieve_counter_evidence")
	g.AddEdge("retrieve_counter_evidence", "analyze_arguments")
	g.AddEdge("analyze_arguments", "summarize_opposition")
	g.AddEdge("summarize_opposition", workflow.End)

	graph, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("opposition pipeline: %w", err)
	}
	p.graph = graph
	return p, nil
}

// Run executes the opposition workflow over input.
func (p *Opposition) Run(ctx context.Context, input OppositionInput) (OppositionState, error) {
	return p.graph.Run(ctx, OppositionState{OppositionInput: input})
}

func (p *Opposition) validateInput(_ context.Context, s OppositionState) (OppositionState, error) {
	if strings.TrimSpace(s.Claim) == "" {
		return s, &domain.ValidationError{Field: "note_content"}
	}
	if s.MaxEvidence <= 0 {
		s.MaxEvidence = p.maxEvidence
	}
	return s, nil
}

func (p *Opposition) retrieveCounterEvidence(ctx context.Context, s OppositionState) (OppositionState, error) {
	results, err := p.retriever.ForOpposition(ctx, s.Claim, s.Context)
	if err != nil {
		return s, err
	}
	if len(results) > s.MaxEvidence {
		results = results[:s.MaxEvidence]
	}
	evidence := make([]Evidence, 0, len(results))
	for _, r := range results {
		source := r.Metadata.Title
		if source == "" {
			source = "Unknown"
		}
		score := r.Score
		if r.RerankScore != nil {
			score = *r.RerankScore
		}
		evidence = append(evidence, Evidence{
			Content: r.Content,
			Source:  source,
			Path:    r.Metadata.Path,
			Score:   score,
		})
	}
	s.Evidence = evidence
	return s, nil
}

// analyzeArguments challenges the claim with the retrieved evidence. With
// no evidence at all it substitutes a fixed message instead of calling the
// model; an empty vault should not cost a generation.
func (p *Opposition) analyzeArguments(ctx context.Context, s OppositionState) (OppositionState, error) {
	if len(s.Evidence) == 0 {
		msg := noCounterEvidenceMessage
		s.Analysis = &msg
		return s, nil
	}

	var sb strings.Builder
	for i, e := range s.Evidence {
		fmt.Fprintf(&sb, "\n[Source %d: %s]\n%s\n", i+1, e.Source, e.Content)
	}
	response, err := p.gen.Generate(ctx, fmt.Sprintf(analysisPrompt, s.Claim, sb.String()))
	if err != nil {
		return s, fmt.Errorf("analyze arguments: %w", err)
	}
	s.Analysis = &response
	return s, nil
}

func (p *Opposition) summarizeOpposition(ctx context.Context, s OppositionState) (OppositionState, error) {
	if s.Analysis == nil {
		msg := noAnalysisMessage
		s.Summary = &msg
		return s, nil
	}

	claim := truncate(s.Claim, maxClaimChars)
	response, err := p.gen.Generate(ctx, fmt.Sprintf(summaryPrompt, claim, *s.Analysis))
	if err != nil {
		return s, fmt.Errorf("summarize opposition: %w", err)
	}
	s.Summary = &response
	return s, nil
}
