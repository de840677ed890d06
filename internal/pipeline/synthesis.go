// Package pipeline holds the three compiled note workflows: synthesis,
// linking and opposition. Each pipeline compiles its graph once at
// construction and exposes a single Run entry point; the final state
// carries every intermediate and terminal output.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"opponent/internal/domain"
	"opponent/internal/markdown"
	"opponent/internal/workflow"
)

// SynthesisInput is the five NoMa reflections plus the network flag.
type SynthesisInput struct {
	Interesting      string
	RemindsMe        string
	SimilarBecause   string
	DifferentBecause string
	ImportantBecause string
	HasInternet      bool
}

// Resource is an external reference suggested for a synthesized note.
type Resource struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// SynthesisState is the record carried through one synthesis run.
// Optional outputs are nil until (and unless) their node produces them.
type SynthesisState struct {
	SynthesisInput

	Note        *string
	Title       *string
	Tags        []string
	Resources   []Resource
	FinalOutput *string
	FileName    string
}

// Synthesis turns structured reflections into a formatted vault note.
type Synthesis struct {
	gen   domain.Generator
	graph *workflow.CompiledGraph[SynthesisState]
}

// NewSynthesis builds and compiles the synthesis workflow.
func NewSynthesis(gen domain.Generator) (*Synthesis, error) {
	p := &Synthesis{gen: gen}

	g := workflow.New[SynthesisState]()
	g.RegisterNode("validate_responses", p.validateResponses)
	g.RegisterNode("generate_note", p.generateNote)
	g.RegisterNode("generate_title", p.generateTitle)
	g.RegisterNode("generate_topic_tags", p.generateTopicTags)
	g.RegisterNode("merge_metadata", p.mergeMetadata)
	g.RegisterNode("fetch_resources", p.fetchResources)
	g.RegisterNode("format_output", p.formatOutput)

	g.SetEntry("validate_responses")
	g.AddEdge("validate_responses", "generate_note")
	// Title and tags only depend on the synthesized note; run them in
	// parallel and join at the metadata merge.
	g.AddFanOut("generate_note", []string{"generate_title", "generate_topic_tags"})
	g.AddEdge("generate_title", "merge_metadata")
	g.AddEdge("generate_topic_tags", "merge_metadata")
	g.AddConditionalEdge("merge_metadata", p.routeResources, map[string]string{
		"fetch_resources": "fetch_resources",
		"format_output":   "format_output",
	})
	g.AddEdge("fetch_resources", "format_output")
	g.AddEdge("format_output", workflow.End)
	g.SetMerge(mergeSynthesisBranches)

	graph, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("synthesis pipeline: %w", err)
	}
	p.graph = graph
	return p, nil
}

// Run executes the synthesis workflow over input.
func (p *Synthesis) Run(ctx context.Context, input SynthesisInput) (SynthesisState, error) {
	return p.graph.Run(ctx, SynthesisState{SynthesisInput: input})
}

func mergeSynthesisBranches(base SynthesisState, branches []SynthesisState) SynthesisState {
	out := base
	for _, b := range branches {
		if b.Title != nil {
			out.Title = b.Title
		}
		if b.Tags != nil {
			out.Tags = b.Tags
		}
	}
	return out
}

func (p *Synthesis) validateResponses(_ context.Context, s SynthesisState) (SynthesisState, error) {
	required := []struct{ name, value string }{
		{"interesting", s.Interesting},
		{"reminds_me", s.RemindsMe},
		{"similar_because", s.SimilarBecause},
		{"different_because", s.DifferentBecause},
		{"important_because", s.ImportantBecause},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return s, &domain.ValidationError{Field: f.name}
		}
	}
	return s, nil
}

func (p *Synthesis) generateNote(ctx context.Context, s SynthesisState) (SynthesisState, error) {
	prompt := fmt.Sprintf(synthesisPrompt,
		s.Interesting, s.RemindsMe, s.SimilarBecause, s.DifferentBecause, s.ImportantBecause)
	var out struct {
		Content string `json:"content"`
	}
	if err := p.gen.GenerateJSON(ctx, prompt, &out); err != nil {
		return s, fmt.Errorf("synthesize note: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return s, fmt.Errorf("synthesize note: %w: empty content", domain.ErrSchemaMismatch)
	}
	s.Note = &out.Content
	return s, nil
}

func (p *Synthesis) generateTitle(ctx context.Context, s SynthesisState) (SynthesisState, error) {
	var out struct {
		Title string `json:"title"`
	}
	if err := p.gen.GenerateJSON(ctx, fmt.Sprintf(titlePrompt, *s.Note), &out); err != nil {
		return s, fmt.Errorf("generate title: %w", err)
	}
	if strings.TrimSpace(out.Title) == "" {
		return s, fmt.Errorf("generate title: %w: empty title", domain.ErrSchemaMismatch)
	}
	s.Title = &out.Title
	return s, nil
}

func (p *Synthesis) generateTopicTags(ctx context.Context, s SynthesisState) (SynthesisState, error) {
	var out struct {
		Tags []string `json:"tags"`
	}
	if err := p.gen.GenerateJSON(ctx, fmt.Sprintf(tagsPrompt, *s.Note), &out); err != nil {
		return s, fmt.Errorf("generate tags: %w", err)
	}
	if len(out.Tags) == 0 {
		return s, fmt.Errorf("generate tags: %w: empty tag list", domain.ErrSchemaMismatch)
	}
	tags := make([]string, 0, len(out.Tags))
	for _, t := range out.Tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#t/")
		if t != "" {
			tags = append(tags, t)
		}
	}
	s.Tags = tags
	return s, nil
}

// mergeMetadata is the fan-in point. It also pins resources to an explicit
// absent value so the skip branch of the conditional leaves a deliberate
// nil rather than a never-touched field.
func (p *Synthesis) mergeMetadata(_ context.Context, s SynthesisState) (SynthesisState, error) {
	s.Resources = nil
	return s, nil
}

func (p *Synthesis) routeResources(s SynthesisState) string {
	if s.HasInternet {
		return "fetch_resources"
	}
	return "format_output"
}

func (p *Synthesis) fetchResources(ctx context.Context, s SynthesisState) (SynthesisState, error) {
	var out []Resource
	if err := p.gen.GenerateJSON(ctx, fmt.Sprintf(resourcesPrompt, *s.Note), &out); err != nil {
		return s, fmt.Errorf("fetch resources: %w", err)
	}
	s.Resources = out
	return s, nil
}

func (p *Synthesis) formatOutput(_ context.Context, s SynthesisState) (SynthesisState, error) {
	title := "Untitled Note"
	if s.Title != nil && strings.TrimSpace(*s.Title) != "" {
		title = strings.TrimSpace(*s.Title)
	}
	s.FileName = markdown.FileName(title)

	md := markdown.NewBuilder()
	md.SetTitle(title)
	for _, tag := range s.Tags {
		md.AddTopicTag(tag)
	}
	note := ""
	if s.Note != nil {
		note = *s.Note
	}
	md.AddParagraph(note)

	if len(s.Resources) > 0 {
		md.AddHeading("Resources", 1)
		for _, r := range s.Resources {
			md.AddParagraph(fmt.Sprintf("- [%s](%s): %s", r.Title, r.URL, r.Reason))
		}
	}

	rendered, err := md.Build()
	if err != nil {
		return s, fmt.Errorf("format output: %w", err)
	}
	s.FinalOutput = &rendered
	return s, nil
}
