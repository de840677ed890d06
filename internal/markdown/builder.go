// Package markdown assembles vault notes: frontmatter title, tag lines,
// body paragraphs and an optional resources section.
package markdown

import (
	"fmt"
	"strings"
)

// Default tags every generated note carries: source and context markers.
var defaultTags = []string{"#s/opponent", "#c/selfstudy"}

// titleSpecials are YAML characters that force quoting the title.
const titleSpecials = ":[]{},\"'&*#?|-<>=!%@\\"

// Builder accumulates note components and renders the final markdown.
type Builder struct {
	title    string
	tags     []string
	sections []string
}

// NewBuilder returns a builder seeded with the default source/context tags.
func NewBuilder() *Builder {
	return &Builder{tags: append([]string(nil), defaultTags...)}
}

// SetTitle sets the note title used in the frontmatter.
func (b *Builder) SetTitle(title string) { b.title = title }

// AddTopicTag appends a topic tag, prefixing it with #t/ when needed.
// Duplicates are ignored.
func (b *Builder) AddTopicTag(tag string) {
	if !strings.HasPrefix(tag, "#t/") {
		tag = "#t/" + tag
	}
	for _, existing := range b.tags {
		if existing == tag {
			return
		}
	}
	b.tags = append(b.tags, tag)
}

// AddHeading appends a markdown heading at the given level.
func (b *Builder) AddHeading(heading string, level int) {
	if level < 1 {
		level = 1
	}
	b.sections = append(b.sections, strings.Repeat("#", level)+" "+heading)
}

// AddParagraph appends a body paragraph.
func (b *Builder) AddParagraph(paragraph string) {
	b.sections = append(b.sections, paragraph)
}

// Build renders the note. The title must be set first.
func (b *Builder) Build() (string, error) {
	if b.title == "" {
		return "", fmt.Errorf("markdown: title must be set before building")
	}
	title := b.title
	if strings.ContainsAny(title, titleSpecials) {
		title = fmt.Sprintf("%q", title)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("title: " + title + "\n")
	sb.WriteString("---\n")
	sb.WriteString("\n" + strings.Join(b.tags, " ") + "\n")
	for _, s := range b.sections {
		sb.WriteString("\n" + s + "\n")
	}
	return sb.String(), nil
}

// FileName derives a suggested file name from a note title.
func FileName(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		name = "untitled_note"
	}
	return name + ".md"
}
