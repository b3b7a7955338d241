package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobimpact/internal/model"
)

var (
	barTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	barCountStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	barFailedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type advanceMsg struct{ failed bool }

type finishMsg struct{}

type barModel struct {
	title  string
	total  int
	done   int
	failed int
	bar    progress.Model
}

func newBarModel(title string, total int) barModel {
	return barModel{
		title: title,
		total: total,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m barModel) Init() tea.Cmd { return nil }

func (m barModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case advanceMsg:
		m.done++
		if msg.failed {
			m.failed++
		}
	case finishMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m barModel) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

func (m barModel) View() string {
	s := barTitleStyle.Render(m.title) + " " + m.bar.ViewAs(m.percent()) + " " +
		barCountStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total))
	if m.failed > 0 {
		s += " " + barFailedStyle.Render(fmt.Sprintf("%d failed", m.failed))
	}
	return s + "\n"
}

// BarReporter draws an inline progress bar for each batch.
type BarReporter struct {
	out io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewBarReporter draws to out, typically os.Stderr.
func NewBarReporter(out io.Writer) *BarReporter {
	return &BarReporter{out: out}
}

func (r *BarReporter) Start(modelID string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := tea.NewProgram(newBarModel(modelID, total), tea.WithOutput(r.out), tea.WithInput(nil))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()
	r.program, r.done = p, done
}

func (r *BarReporter) Advance(o model.Outcome) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(advanceMsg{failed: o.Status == model.StatusFailure})
	}
}

func (r *BarReporter) Finish() {
	r.mu.Lock()
	p, done := r.program, r.done
	r.program, r.done = nil, nil
	r.mu.Unlock()

	if p == nil {
		return
	}
	p.Send(finishMsg{})
	<-done
}
