package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"

	"ybctl/cli/style"
	"ybctl/cluster"
)

// runWithView runs req and reports progress either through the live
// spinner view or, off a terminal or with --plain, as plain lines.
func runWithView(ctx context.Context, ctl *cluster.Controller, req cluster.Request) error {
	if plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		return runPlain(ctx, ctl, req)
	}
	return runProgress(ctx, ctl, req)
}

func runPlain(ctx context.Context, ctl *cluster.Controller, req cluster.Request) error {
	ctl.Observer = func(e cluster.Event) {
		if e.Phase != cluster.PhaseRunning {
			fmt.Println(stepLine(stepState{name: e.Step(), status: e.Phase, pid: e.PID}, ""))
		}
	}
	res, err := ctl.Run(ctx, req)
	if err != nil {
		return err
	}
	printSummary(res)
	return nil
}

func runProgress(ctx context.Context, ctl *cluster.Controller, req cluster.Request) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Supervisor logs would tear the view; hold them until it closes.
	var logs bytes.Buffer
	prev := log.StandardLogger().Out
	log.SetOutput(&logs)
	defer log.SetOutput(prev)

	ch := startController(ctx, ctl, req)
	p := tea.NewProgram(newProgressModel(req.Command.String(), cancel, ch))
	finalModel, err := p.Run()
	if err != nil {
		// The view died under a running controller; unwind it before returning.
		cancel()
		if done := drainProgress(ch); done.err != nil {
			return fmt.Errorf("%w (view: %v)", done.err, err)
		}
		return err
	}

	pm := finalModel.(progressModel)
	if pm.err != nil {
		if logs.Len() > 0 {
			fmt.Fprint(os.Stderr, style.DimText.Render(logs.String()))
		}
		return pm.err
	}
	if pm.res != nil {
		printSummary(pm.res)
	}
	return nil
}

// --- Messages ---

type progressEvent struct{ ev cluster.Event }
type progressDone struct {
	res *cluster.Result
	err error
}

// --- Model ---

type stepState struct {
	name   string
	status cluster.Phase
	pid    int
}

type progressModel struct {
	title      string
	cancel     context.CancelFunc
	spinner    spinner.Model
	steps      []stepState
	index      map[string]int
	finished   bool
	cancelling bool
	res        *cluster.Result
	err        error
	startTime  time.Time
	eventCh    <-chan tea.Msg
}

func newProgressModel(title string, cancel context.CancelFunc, ch <-chan tea.Msg) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Primary)

	return progressModel{
		title:     title,
		cancel:    cancel,
		eventCh:   ch,
		spinner:   s,
		index:     make(map[string]int),
		startTime: time.Now(),
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.eventCh))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			// Let the controller unwind so the lock is released cleanly.
			m.cancelling = true
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressEvent:
		m = m.apply(msg.ev)
		return m, waitForProgress(m.eventCh)

	case progressDone:
		m.finished = true
		m.res = msg.res
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m progressModel) apply(e cluster.Event) progressModel {
	key := e.Step()
	i, ok := m.index[key]
	if !ok {
		i = len(m.steps)
		m.index[key] = i
		m.steps = append(m.steps, stepState{name: key})
	}
	m.steps[i].status = e.Phase
	if e.PID != 0 {
		m.steps[i].pid = e.PID
	}
	return m
}

func (m progressModel) View() string {
	var b strings.Builder

	b.WriteString(style.Banner.Render(strings.ToUpper(strings.ReplaceAll(m.title, "_", " "))))
	b.WriteString("\n")

	for _, step := range m.steps {
		b.WriteString(stepLine(step, m.spinner.View()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	elapsed := time.Since(m.startTime).Round(time.Second)
	switch {
	case !m.finished && m.cancelling:
		b.WriteString(m.spinner.View() + style.Warning.Render(" Cancelling..."))
	case !m.finished:
		b.WriteString(m.spinner.View() + style.DimText.Render(fmt.Sprintf(" Running %s... (%s)", m.title, elapsed)))
	case m.err != nil:
		b.WriteString(style.StepFailed.Render(fmt.Sprintf("%s failed after %s", m.title, elapsed)))
	default:
		b.WriteString(style.SuccessBox.Render(fmt.Sprintf("%s finished in %s", m.title, elapsed)))
	}

	b.WriteString("\n")
	return b.String()
}

func stepLine(step stepState, spin string) string {
	name := padRight(step.name, 22)
	switch step.status {
	case cluster.PhaseRunning:
		return fmt.Sprintf("  %s %s %s", style.StepRunning.Render(name), spin, style.StepRunning.Render("running"))
	case cluster.PhaseCompleted:
		done := "done"
		if step.pid != 0 {
			done = fmt.Sprintf("done (pid %d)", step.pid)
		}
		return fmt.Sprintf("  %s %s", style.StepDone.Render(name), style.StepDone.Render(done))
	case cluster.PhaseSkipped:
		return fmt.Sprintf("  %s %s", style.StepSkipped.Render(name), style.StepSkipped.Render(fmt.Sprintf("already running (pid %d)", step.pid)))
	case cluster.PhaseFailed:
		return fmt.Sprintf("  %s %s", style.StepFailed.Render(name), style.StepFailed.Render("failed"))
	}
	return fmt.Sprintf("  %s %s", style.StepPending.Render(name), style.StepPending.Render("waiting"))
}

// --- Commands ---

// startController runs req in the background. The channel carries its
// events, then one progressDone, then closes.
func startController(ctx context.Context, ctl *cluster.Controller, req cluster.Request) <-chan tea.Msg {
	ch := make(chan tea.Msg, 64)
	ctl.Observer = func(e cluster.Event) {
		ch <- progressEvent{ev: e}
	}

	go func() {
		defer close(ch)
		res, err := ctl.Run(ctx, req)
		ch <- progressDone{res: res, err: err}
	}()

	return ch
}

// drainProgress discards events until the controller reports back.
func drainProgress(ch <-chan tea.Msg) progressDone {
	var done progressDone
	for msg := range ch {
		if d, ok := msg.(progressDone); ok {
			done = d
		}
	}
	return done
}

func waitForProgress(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return progressDone{}
		}
		return msg
	}
}

func printSummary(res *cluster.Result) {
	if res.MasterAddresses != "" {
		fmt.Printf("  %s %s\n", style.Key.Render("Masters"), style.Val.Render(res.MasterAddresses))
	}
	fmt.Printf("  %s %s\n", style.Key.Render("Data dir"), style.Val.Render(res.DataDir))
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
