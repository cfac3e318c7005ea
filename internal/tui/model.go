package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"plantprofit/internal/answer"
	"plantprofit/internal/domain"
	"plantprofit/internal/llm/extractive"
	"plantprofit/internal/textproc"
)

const (
	defaultTopK  = 3
	queryTimeout = 60 * time.Second
)

// AdvisorPort is the TUI-facing subset of the advisory service.
type AdvisorPort interface {
	Query(ctx context.Context, query string, topK int) (answer.Result, error)
	Document(id string) (domain.Document, bool)
}

type answerMsg struct {
	query  string
	result answer.Result
	err    error
}

// Model is the Bubble Tea model for the advisor chat.
type Model struct {
	advisor   AdvisorPort
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	result    *answer.Result
	summary   string
	status    string
	cursor    int
	ready     bool
	pending   bool
	lastQuery string
}

// New creates the chat model. summary is shown under the header.
func New(advisor AdvisorPort, summary string, topK int) Model {
	if topK <= 0 {
		topK = defaultTopK
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about crops, yields or what to plant and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{advisor: advisor, topK: topK, input: ti, viewport: vp, summary: summary, status: "Catalog loaded. Ask a question."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	advisor, topK := m.advisor, m.topK
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		res, err := advisor.Query(ctx, q, topK)
		return answerMsg{query: q, result: res, err: err}
	}
}

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case answerMsg:
		m.receive(msg)
		return m, nil
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize gives the viewport whatever the header, input box and status line leave.
func (m *Model) resize(width, height int) {
	m.ready = true
	_, boxFrame := resultBoxStyle.GetFrameSize()
	_, inputFrame := queryBoxStyle.GetFrameSize()
	const chromeLines = 4 // header, summary, input line, status
	m.viewport.Width = max(20, width)
	m.viewport.Height = max(3, height-chromeLines-inputFrame-boxFrame)
	m.refresh()
}

func (m *Model) receive(msg answerMsg) {
	m.pending = false
	if msg.err != nil {
		m.status = "Error: " + msg.err.Error()
		m.result = nil
	} else {
		res := msg.result
		m.result, m.cursor, m.lastQuery = &res, 0, msg.query
		m.status = fmt.Sprintf("Answer for %q (%d sources, up/down to browse)", msg.query, len(res.Context))
	}
	m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		return m, tea.Quit, true
	case tea.KeyEnter:
		q := strings.TrimSpace(m.input.Value())
		if q == "" || m.pending {
			return m, nil, true
		}
		m.pending = true
		m.status = "Thinking..."
		m.input.SetValue("")
		return m, m.ask(q), true
	case tea.KeyDown, tea.KeyUp:
		n := m.pages()
		if n < 2 {
			return m, nil, false
		}
		step := 1
		if msg.Type == tea.KeyUp {
			step = n - 1
		}
		m.cursor = (m.cursor + step) % n
		m.refresh()
		return m, nil, true
	}
	return m, nil, false
}

func (m *Model) refresh() { m.viewport.SetContent(m.renderCurrent()) }

// View stacks header, catalog summary, result box, input box and status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("PlantProfit Advisor"),
		summaryStyle.Render(m.summary),
		resultBoxStyle.Render(m.viewport.View()),
		queryBoxStyle.Render(m.input.View()),
		statusStyle.Render(m.status),
	)
}

// pages is the answer page plus one page per source.
func (m Model) pages() int {
	if m.result == nil {
		return 0
	}
	return 1 + len(m.result.Context)
}

func (m Model) renderCurrent() string {
	if m.result == nil {
		return "No answer yet."
	}
	if m.cursor == 0 {
		ids := make([]string, len(m.result.Context))
		for i, c := range m.result.Context {
			ids[i] = fmt.Sprintf("%s (%.3f)", c.ID, c.Score)
		}
		sources := "none"
		if len(ids) > 0 {
			sources = strings.Join(ids, ", ")
		}
		return m.result.Answer + "\n\n" + sourceStyle.Render("Sources: "+sources)
	}
	hit := m.result.Context[m.cursor-1]
	title := fmt.Sprintf("Source %d/%d  %s  score=%.3f", m.cursor, len(m.result.Context), hit.ID, hit.Score)
	doc, ok := m.advisor.Document(hit.ID)
	if !ok {
		return title + "\n\n(document not in the local catalog)"
	}
	return title + "\n\n" + highlightBestSentence(extractive.Describe(doc), m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle    = lipgloss.NewStyle().Bold(true)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func highlightBestSentence(text, query string) string {
	sentences := textproc.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := textproc.TokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := overlap(qTokens, s); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

// overlap counts the distinct tokens of sentence that occur in the query.
func overlap(query map[string]struct{}, sentence string) int {
	n := 0
	for t := range textproc.TokenSet(sentence) {
		if _, ok := query[t]; ok {
			n++
		}
	}
	return n
}
