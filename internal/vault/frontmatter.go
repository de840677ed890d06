package vault

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// noteMeta is the YAML frontmatter shape of a vault note.
type noteMeta struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// parseFrontmatter splits a note into its YAML frontmatter and body. Notes
// without a frontmatter block yield a zero meta and the full content as
// body. A present but malformed block is an error; the caller decides
// whether to skip the file.
func parseFrontmatter(content string) (noteMeta, string, error) {
	var meta noteMeta
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return meta, content, nil
	}
	rest := content[4:]
	if strings.HasPrefix(content, "---\r\n") {
		rest = content[5:]
	}
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return meta, content, nil
	}
	block := rest[:end]
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(strings.TrimPrefix(body, "\r"), "\n")

	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return noteMeta{}, "", err
	}
	// Frontmatter written by hand sometimes carries empty list items.
	var tags []string
	for _, t := range meta.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	meta.Tags = tags
	return meta, body, nil
}
