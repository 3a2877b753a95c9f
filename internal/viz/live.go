package viz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pendsim/internal/harness"
)

const (
	canvasWidth     = 40
	canvasHeight    = 16
	historyCapacity = 600
	maxStepsPerTick = 64
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(52)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Live steps a comparison session on a timer and draws trajectory 0 of the
// reference and the model over each other.
type Live struct {
	ctx       context.Context
	session   *harness.Session
	running   bool
	perTick   int
	last      []harness.StepResult
	stateHist []float64
	costHist  []float64
	totals    struct{ state, cost float64 }
	flags     int
	err       error
	canvas    *Canvas
	showHelp  bool
}

func NewLive(ctx context.Context, session *harness.Session) *Live {
	return &Live{
		ctx:       ctx,
		session:   session,
		running:   true,
		perTick:   1,
		stateHist: make([]float64, 0, historyCapacity),
		costHist:  make([]float64, 0, historyCapacity),
		canvas:    NewCanvas(canvasWidth, canvasHeight),
	}
}

func (m *Live) Init() tea.Cmd {
	return tick()
}

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.advance()
			}
		case "+", "=":
			m.perTick = min(m.perTick*2, maxStepsPerTick)
		case "-", "_":
			m.perTick = max(m.perTick/2, 1)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.perTick && m.running; i++ {
				m.advance()
			}
		}
		return m, tick()
	}
	return m, nil
}

// advance runs one timestep and folds its results into the view state.
func (m *Live) advance() {
	if m.session.Done() || m.err != nil {
		m.running = false
		return
	}

	results, err := m.session.Step(m.ctx)
	if err != nil {
		if !errors.Is(err, harness.ErrFinished) {
			m.err = err
		}
		m.running = false
		return
	}

	var sd, cd float64
	for _, r := range results {
		sd += r.StateDiff
		cd += r.CostDiff
		if r.Flagged() {
			m.flags++
		}
	}
	m.totals.state += sd
	m.totals.cost += cd
	m.stateHist = pushCapped(m.stateHist, sd)
	m.costHist = pushCapped(m.costHist, cd)
	m.last = results
	if m.session.Done() {
		m.running = false
	}
}

func pushCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Live) draw() {
	m.canvas.Clear()
	if len(m.last) == 0 {
		return
	}
	r := m.last[0]
	length := float64(canvasHeight*2) * 0.85
	if len(r.RefNext) > 0 {
		m.canvas.DrawPendulum(r.RefNext[0], length, 1)
	}
	m.canvas.DrawPendulum(float64(r.ModelNext.Theta()), length*0.7, 0)
}

func (m *Live) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	done, total := m.session.Progress()
	status := "RUNNING"
	switch {
	case m.err != nil:
		status = "ERROR"
	case m.session.Done():
		status = "FINISHED"
	case !m.running:
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(Title().Render(fmt.Sprintf("LIVE %s COMPARISON", strings.ToUpper(string(m.session.Mode())))) + "\n")
	s.WriteString(StatusStyle(m.running).Render(status) + fmt.Sprintf("  x%d\n", m.perTick))
	s.WriteString(ProgressBar(done, total, 30) + fmt.Sprintf(" %d/%d\n\n", done, total))

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + Value().Render(value) + "\n")
	}
	row("state diff", fmt.Sprintf("%.6g", m.totals.state))
	row("cost diff", fmt.Sprintf("%.6g", m.totals.cost))
	row("flagged", fmt.Sprintf("%d", m.flags))
	if len(m.last) > 0 {
		r := m.last[0]
		if len(r.RefNext) >= 2 {
			row("reference", ReferenceStyle().Render(fmt.Sprintf("θ %+.4f  ω %+.4f", wrap(r.RefNext[0]), r.RefNext[1])))
		}
		row("model", ModelStyle().Render(fmt.Sprintf("θ %+.4f  ω %+.4f", wrap(float64(r.ModelNext.Theta())), float64(r.ModelNext.ThetaDot()))))
		row("torque", fmt.Sprintf("%+.4f", r.Control))
	}
	s.WriteString("\n" + Subtle().Render("state diff ") + Sparkline(m.stateHist, 36) + "\n")
	s.WriteString(Subtle().Render("cost diff  ") + Sparkline(m.costHist, 36) + "\n")
	if len(m.stateHist) > 1 {
		s.WriteString(Plot("per-step state diff", 4, 36, m.stateHist) + "\n")
	}
	if m.err != nil {
		s.WriteString(FlagStyle().Render(m.err.Error()) + "\n")
	}
	s.WriteString(Legend() + "\n")
	s.WriteString(helpStyle.Render("SP:Pause N:Step +/-:Speed T:Theme Q:Quit ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
  Space  pause or resume
  N      single step while paused
  + / -  double or halve steps per frame
  T      cycle themes
  Q      quit
` + "\n" + mainView
	}
	return mainView
}

// Err is the error that stopped the session, if any.
func (m *Live) Err() error { return m.err }

func wrap(theta float64) float64 {
	return math.Mod(theta+math.Pi, 2*math.Pi) - math.Pi
}
