package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Verdict is a finished opposition run as the TUI presents it.
type Verdict struct {
	Summary  string
	Analysis string
	Evidence []Evidence
}

// Evidence is one counter-source shown in the evidence pager.
type Evidence struct {
	Source  string
	Path    string
	Content string
	Score   float64
}

// OpponentPort is the TUI-facing subset of the opposition pipeline.
type OpponentPort interface {
	Oppose(claim string) (Verdict, error)
}

// Model is the Bubble Tea model for the interactive opponent session.
type Model struct {
	opponent  OpponentPort
	input     textinput.Model
	viewport  viewport.Model
	verdict   *Verdict
	status    string
	cursor    int
	ready     bool
	lastClaim string
}

// New creates a new TUI model instance.
func New(opponent OpponentPort, vaultInfo string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "State a claim and press Enter to be challenged"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		opponent: opponent,
		input:    ti,
		viewport: vp,
		status:   vaultInfo + " Type a claim to begin.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around evidence and claim boxes
		_, rh := evidenceBoxStyle.GetFrameSize()
		_, qh := claimBoxStyle.GetFrameSize()
		totalHeaderLines := 1
		totalFooterLines := 1
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderVerdict())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			claim := strings.TrimSpace(m.input.Value())
			if claim != "" {
				v, err := m.opponent.Oppose(claim)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.verdict = nil
				} else {
					m.status = fmt.Sprintf("Opposition for %q", claim)
					m.verdict = &v
					m.cursor = 0
					m.lastClaim = claim
				}
				m.viewport.SetContent(m.renderVerdict())
				return m, nil
			}
		case "down":
			if m.verdict != nil && len(m.verdict.Evidence) > 0 {
				m.cursor = (m.cursor + 1) % len(m.verdict.Evidence)
				m.viewport.SetContent(m.renderVerdict())
				return m, nil
			}
		case "up":
			if m.verdict != nil && len(m.verdict.Evidence) > 0 {
				m.cursor = (m.cursor - 1 + len(m.verdict.Evidence)) % len(m.verdict.Evidence)
				m.viewport.SetContent(m.renderVerdict())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current verdict.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Opponent")
	input := claimBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	evidence := evidenceBoxStyle.Render(m.viewport.View())
	return header + "\n" + evidence + "\n" + input + "\n" + status
}

func (m Model) renderVerdict() string {
	if m.verdict == nil {
		return "No opposition yet."
	}
	var sb strings.Builder
	sb.WriteString(summaryStyle.Render(m.verdict.Summary))
	sb.WriteString("\n\n")
	if len(m.verdict.Evidence) == 0 {
		sb.WriteString(m.verdict.Analysis)
		return sb.String()
	}
	e := m.verdict.Evidence[m.cursor]
	sb.WriteString(fmt.Sprintf("Evidence %d/%d  %s (%s)  score=%.1f\n\n",
		m.cursor+1, len(m.verdict.Evidence), e.Source, e.Path, e.Score))
	sb.WriteString(highlightBestSentence(e.Content, m.lastClaim))
	return sb.String()
}

var (
	evidenceBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	claimBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	summaryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the evidence sentence sharing the most
// word tokens with the claim.
func highlightBestSentence(text, claim string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(claim)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(claimTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := claimTokens[t]; ok {
			score++
		}
	}
	return score
}
