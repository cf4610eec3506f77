package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docrag/internal/chat"
	"docrag/internal/chunker"
	"docrag/internal/domain"
)

const (
	title      = "Architecture Mate"
	disclaimer = "Disclaimer: answers are based on a publicly available architecture reference book. We are not professional architects and you use this chatbot at your own risk. For professional advice, please consult a qualified architect."
)

// Examples are the prompts offered with tab.
var Examples = []string{
	"Can you provide information on Gothic architecture?",
	"What are the key features of Modernist architecture?",
	"Tell me about famous Baroque buildings.",
	"How did the Renaissance influence architecture?",
	"What are some notable examples of Brutalist architecture?",
	"Can you explain the principles of Sustainable architecture?",
	"What are the characteristics of Art Deco architecture?",
	"How does Contemporary architecture differ from other styles?",
	"What are the basics of designing a sustainable building?",
	"How can I incorporate natural light into my building design?",
	"What are the key principles of minimalist architecture?",
	"Can you provide tips for designing energy-efficient homes?",
	"What materials are commonly used in modern architecture?",
	"How can I create an open floor plan in my home design?",
}

// AskPort starts a streamed answer grounded on already retrieved pages.
type AskPort interface {
	AskWithContext(ctx context.Context, history []domain.Turn, message string, retrieved []string) (chat.Stream, error)
}

// SourcePort exposes the ranked pages behind an answer.
type SourcePort interface {
	Matches(ctx context.Context, query string, k int) ([]domain.RankedUnit, error)
}

type streamStartedMsg struct{ stream chat.Stream }

type fragmentMsg struct{ text string }

type streamDoneMsg struct{}

type streamErrMsg struct{ err error }

// Model is the Bubble Tea model for the chat application.
type Model struct {
	asker    AskPort
	sources  SourcePort
	topK     int
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history   []domain.Turn
	question  string
	answer    strings.Builder
	streaming bool
	stream    chat.Stream
	cancel    context.CancelFunc

	matches   []domain.RankedUnit
	cursor    int
	example   int
	summary   string
	status    string
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(asker AskPort, sources SourcePort, topK int, summary string) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, tab for examples"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		asker:    asker,
		sources:  sources,
		topK:     topK,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		example:  -1,
		summary:  summary,
		status:   "Loaded. Ask away.",
	}
}

// Init initializes the model (text input cursor blink).
func (m *Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and stream events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 3                                    // title + disclaimer + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case streamStartedMsg:
		if !m.streaming {
			_ = msg.stream.Close()
			return m, nil
		}
		m.stream = msg.stream
		return m, recv(msg.stream)
	case fragmentMsg:
		if !m.streaming {
			return m, nil
		}
		m.answer.WriteString(msg.text)
		m.refresh()
		return m, recv(m.stream)
	case streamDoneMsg:
		m.finish("Answered. Up/down browses the retrieved pages.")
		return m, nil
	case streamErrMsg:
		m.finish("Error: " + msg.err.Error())
		return m, nil
	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.stop()
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.streaming {
				return m, m.ask(q)
			}
			return m, nil
		case "esc":
			if m.streaming {
				m.finish("Stopped.")
			}
			return m, nil
		case "tab":
			if !m.streaming {
				m.example = (m.example + 1) % len(Examples)
				m.input.SetValue(Examples[m.example])
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			if len(m.matches) > 0 {
				m.cursor = (m.cursor + 1) % len(m.matches)
				m.refresh()
				return m, nil
			}
		case "up":
			if len(m.matches) > 0 {
				m.cursor = (m.cursor - 1 + len(m.matches)) % len(m.matches)
				m.refresh()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) ask(q string) tea.Cmd {
	matches, err := m.sources.Matches(context.Background(), q, m.topK)
	if err != nil {
		m.status = "Error: " + err.Error()
		return nil
	}
	m.matches = matches
	m.cursor = 0
	m.question = q
	m.lastQuery = q
	m.answer.Reset()
	m.input.SetValue("")
	m.streaming = true
	m.status = fmt.Sprintf("Answering %q (esc to stop)", q)
	m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	history := append([]domain.Turn(nil), m.history...)
	retrieved := []string{domain.EmptyResultSentinel}
	if len(matches) > 0 {
		retrieved = make([]string, len(matches))
		for i, r := range matches {
			retrieved[i] = r.Text
		}
	}
	start := func() tea.Msg {
		stream, err := m.asker.AskWithContext(ctx, history, q, retrieved)
		if err != nil {
			return streamErrMsg{err: err}
		}
		return streamStartedMsg{stream: stream}
	}
	return tea.Batch(start, m.spinner.Tick)
}

func recv(stream chat.Stream) tea.Cmd {
	return func() tea.Msg {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return streamDoneMsg{}
		}
		if err != nil {
			return streamErrMsg{err: err}
		}
		return fragmentMsg{text: frag}
	}
}

// finish records the turn and releases the stream. Messages from an
// abandoned stream arrive with m.streaming false and are ignored.
func (m *Model) finish(status string) {
	if !m.streaming {
		return
	}
	m.history = append(m.history, domain.Turn{User: m.question, Assistant: m.answer.String()})
	m.stop()
	m.status = status
	m.refresh()
}

func (m *Model) stop() {
	m.streaming = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.stream != nil {
		_ = m.stream.Close()
		m.stream = nil
	}
}

// History returns the completed turns.
func (m *Model) History() []domain.Turn { return m.history }

// View renders the TUI layout.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(title)
	warn := disclaimerStyle.Render(disclaimer)
	// the header budget is one line
	summary := summaryStyle.MaxWidth(max(20, m.viewport.Width)).Render(firstLine(m.summary))
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.streaming {
		status = m.spinner.View() + " " + status
	}
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + warn + "\n" + summary + "\n" + results + "\n" + input + "\n" + statusStyle.Render(status)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript() + "\n\n" + m.renderCurrentSource())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	var sb strings.Builder
	for _, t := range m.history {
		sb.WriteString(userStyle.Render("You: ") + t.User + "\n")
		sb.WriteString(botStyle.Render("Mate: ") + t.Assistant + "\n\n")
	}
	if m.streaming {
		sb.WriteString(userStyle.Render("You: ") + m.question + "\n")
		sb.WriteString(botStyle.Render("Mate: ") + m.answer.String())
	}
	if sb.Len() == 0 {
		return "No conversation yet."
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) renderCurrentSource() string {
	if len(m.matches) == 0 {
		return summaryStyle.Render(domain.EmptyResultSentinel)
	}
	r := m.matches[m.cursor]
	head := fmt.Sprintf("Source %d/%d  page=%d  distance=%.3f", m.cursor+1, len(m.matches), r.Ordinal, r.Distance)
	body := highlightBestSentence(r.Text, m.lastQuery)
	return summaryStyle.Render(head) + "\n" + body
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	disclaimerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	summaryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	resultBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe   = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := chunker.Sentences(text)
	qTokens := toTokenSet(query)
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
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
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

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
