package pipeline

import (
	"context"
	"fmt"
	"strings"

	"opponent/internal/domain"
	"opponent/internal/retrieval"
	"opponent/internal/workflow"
)

// maxReasonChars bounds the snippet quoted as a link suggestion's reason.
const maxReasonChars = 200

// noRelatedNotesMessage is the fixed summary for an empty suggestion list.
const noRelatedNotesMessage = "No related notes found for linking."

// LinkingInput identifies the note to find connections for. MaxLinks of 0
// takes the pipeline default.
type LinkingInput struct {
	NotePath    string
	NoteContent string
	MaxLinks    int
}

// SuggestedLink is one proposed connection to an existing vault note.
type SuggestedLink struct {
	Path   string
	Title  string
	Reason string
	Score  float64
}

// LinkingState is the record carried through one linking run.
type LinkingState struct {
	LinkingInput

	Suggested []SuggestedLink
	Summary   *string
}

// Linking discovers semantic connections between a note and the vault.
type Linking struct {
	retriever *retrieval.Engine
	maxLinks  int
	graph     *workflow.CompiledGraph[LinkingState]
}

// NewLinking builds and compiles the linking workflow. defaultMax is used
// when callers do not set MaxLinks.
func NewLinking(retriever *retrieval.Engine, defaultMax int) (*Linking, error) {
	if defaultMax <= 0 {
		defaultMax = 5
	}
	p := &Linking{retriever: retriever, maxLinks: defaultMax}

	g := workflow.New[LinkingState]()
	g.RegisterNode("validate_input", p.validateInput)
	g.RegisterNode("find_links", p.findLinks)
	g.RegisterNode("format_suggestions", p.formatSuggestions)
	g.SetEntry("validate_input")
	g.AddEdge("validate_input", "find_links")
	g.AddEdge("find_links", "format_suggestions")
	g.AddEdge("format_suggestions", workflow.End)

	graph, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("linking pipeline: %w", err)
	}
	p.graph = graph
	return p, nil
}

// Run executes the linking workflow over input.
func (p *Linking) Run(ctx context.Context, input LinkingInput) (LinkingState, error) {
	return p.graph.Run(ctx, LinkingState{LinkingInput: input})
}

func (p *Linking) validateInput(_ context.Context, s LinkingState) (LinkingState, error) {
	if strings.TrimSpace(s.NotePath) == "" {
		return s, &domain.ValidationError{Field: "note_path"}
	}
	if strings.TrimSpace(s.NoteContent) == "" {
		return s, &domain.ValidationError{Field: "note_content"}
	}
	if s.MaxLinks <= 0 {
		s.MaxLinks = p.maxLinks
	}
	return s, nil
}

func (p *Linking) findLinks(ctx context.Context, s LinkingState) (LinkingState, error) {
	results, err := p.retriever.ForLinking(ctx, s.NoteContent, s.NotePath)
	if err != nil {
		return s, err
	}
	if len(results) > s.MaxLinks {
		results = results[:s.MaxLinks]
	}
	suggested := make([]SuggestedLink, 0, len(results))
	for _, r := range results {
		reason := truncate(r.Content, maxReasonChars)
		title := r.Metadata.Title
		if title == "" {
			title = "Untitled"
		}
		suggested = append(suggested, SuggestedLink{
			Path:   r.Metadata.Path,
			Title:  title,
			Reason: reason,
			Score:  r.Score,
		})
	}
	s.Suggested = suggested
	return s, nil
}

func (p *Linking) formatSuggestions(_ context.Context, s LinkingState) (LinkingState, error) {
	if len(s.Suggested) == 0 {
		msg := noRelatedNotesMessage
		s.Summary = &msg
		return s, nil
	}

	lines := []string{fmt.Sprintf("Found %d related note(s) for linking:", len(s.Suggested))}
	for i, link := range s.Suggested {
		lines = append(lines,
			fmt.Sprintf("%d. [[%s]]", i+1, link.Title),
			fmt.Sprintf("\t- Path: %s", link.Path),
			fmt.Sprintf("\t- Relevance: %.4f", link.Score),
			"",
		)
	}
	summary := strings.TrimSpace(strings.Join(lines, "\n"))
	s.Summary = &summary
	return s, nil
}
