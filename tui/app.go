// Package tui is the terminal editor. It drives one revision.Orchestrator
// through bubbletea; which screen, tab and menu is visible is decided by the
// viewstate reducer.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"news_blog_gen/article"
	"news_blog_gen/export"
	"news_blog_gen/generator"
	"news_blog_gen/revision"
	"news_blog_gen/viewstate"
)

const (
	narrowWidth  = 100
	sidebarWidth = 38
)

// wizard fields, in focus order
const (
	fieldKeywords = iota
	fieldPeriod
	fieldTone
	fieldLength
	fieldCount
)

type eventMsg revision.Event

type eventsClosedMsg struct{}

type draftDoneMsg struct{ err error }

type editDoneMsg struct {
	op  string
	res revision.Result
	err error
}

type exportDoneMsg struct {
	path string
	err  error
}

type Option func(*App)

func WithLogger(l logrus.FieldLogger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

func WithExportDir(dir string) Option {
	return func(a *App) {
		if dir != "" {
			a.exportDir = dir
		}
	}
}

// App is the bubbletea model for one editing session.
type App struct {
	ctx       context.Context
	orch      *revision.Orchestrator
	events    <-chan revision.Event
	log       logrus.FieldLogger
	exportDir string

	view viewstate.State

	// wizard
	keywords textinput.Model
	focus    int
	period   int
	tone     int
	length   int
	progress progress.Model
	percent  float64
	stage    string

	// editor
	instruction textinput.Model
	body        viewport.Model

	busy   bool
	status string
	err    error

	width  int
	height int
}

func NewApp(ctx context.Context, orch *revision.Orchestrator, opts ...Option) *App {
	kw := textinput.New()
	kw.Placeholder = "e.g. AI 기술, 반도체"
	kw.CharLimit = 120
	kw.Focus()

	in := textinput.New()
	in.Placeholder = "Ask for a change (enter to send)"
	in.CharLimit = 500

	a := &App{
		ctx:         ctx,
		orch:        orch,
		log:         logrus.StandardLogger(),
		exportDir:   "exports",
		view:        viewstate.Initial(),
		keywords:    kw,
		period:      1,
		progress:    progress.New(progress.WithDefaultGradient()),
		instruction: in,
		body:        viewport.New(80, 20),
		width:       narrowWidth,
		height:      30,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithFields(logrus.Fields{"component": "tui", "session_id": uuid.NewString()})
	a.events, _ = orch.Subscribe()
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitEvent(a.events))
}

func waitEvent(ch <-chan revision.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.dispatch(viewstate.Event{Kind: viewstate.Resize, Narrow: msg.Width < narrowWidth})
		return a, nil

	case eventMsg:
		a.handleEvent(revision.Event(msg))
		return a, waitEvent(a.events)

	case eventsClosedMsg:
		return a, nil

	case draftDoneMsg:
		a.busy = false
		if msg.err != nil {
			a.log.WithError(msg.err).Debug("draft not applied")
			a.err = msg.err
			a.status = ""
			a.percent = 0
			return a, nil
		}
		a.err = nil
		a.status = "Draft ready"
		a.dispatch(viewstate.Event{Kind: viewstate.Drafted})
		a.keywords.Blur()
		a.instruction.Focus()
		a.refreshBody()
		return a, nil

	case editDoneMsg:
		a.busy = false
		a.err = msg.err
		a.status = ""
		switch {
		case msg.err != nil:
		case msg.res.Warning != nil:
			a.status = msg.res.Warning.Message()
		default:
			a.status = msg.op + " applied"
		}
		a.refreshBody()
		return a, nil

	case exportDoneMsg:
		a.err = msg.err
		if msg.err == nil {
			a.status = "Saved to " + msg.path
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleEvent(ev revision.Event) {
	switch ev.Type {
	case revision.EventProgress:
		a.percent = float64(ev.Percent) / 100
		a.stage = ev.Message
	case revision.EventEntry:
		a.refreshBody()
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.orch.Close()
		return a, tea.Quit
	}
	switch a.view.Screen {
	case viewstate.ScreenLanding:
		switch msg.String() {
		case "enter":
			a.dispatch(viewstate.Event{Kind: viewstate.Start})
		case "q", "esc":
			a.orch.Close()
			return a, tea.Quit
		}
		return a, nil
	case viewstate.ScreenWizard:
		return a.wizardKey(msg)
	default:
		return a.editorKey(msg)
	}
}

func (a *App) wizardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if a.busy {
			a.orch.Cancel()
			return a, nil
		}
		a.dispatch(viewstate.Event{Kind: viewstate.Back})
		return a, nil
	case "up":
		a.moveFocus(-1)
		return a, nil
	case "down", "tab":
		a.moveFocus(1)
		return a, nil
	case "enter":
		return a, a.submitDraft()
	}
	if a.focus != fieldKeywords {
		switch msg.String() {
		case "left":
			a.cycle(-1)
		case "right":
			a.cycle(1)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.keywords, cmd = a.keywords.Update(msg)
	return a, cmd
}

func (a *App) editorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if a.view.LangMenuOpen || a.view.ExportMenuOpen {
		if n, ok := menuIndex(key); ok {
			return a, a.chooseMenu(n)
		}
	}
	switch key {
	case "esc":
		if a.busy {
			a.orch.Cancel()
			return a, nil
		}
		a.dispatch(viewstate.Event{Kind: viewstate.CloseMenus})
		return a, nil
	case "tab":
		a.dispatch(viewstate.Event{Kind: viewstate.ToggleTab})
		a.refreshBody()
		return a, nil
	case "ctrl+b":
		a.dispatch(viewstate.Event{Kind: viewstate.ToggleSidebar})
		return a, nil
	case "ctrl+l":
		a.dispatch(viewstate.Event{Kind: viewstate.ToggleLangMenu})
		return a, nil
	case "ctrl+e":
		a.dispatch(viewstate.Event{Kind: viewstate.ToggleExportMenu})
		return a, nil
	case "ctrl+z":
		if err := a.orch.Undo(); err != nil {
			a.err = err
		} else {
			a.err = nil
			a.status = "Reverted"
		}
		a.refreshBody()
		return a, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.body, cmd = a.body.Update(msg)
		return a, cmd
	case "enter":
		return a, a.submitInstruction()
	}
	var cmd tea.Cmd
	a.instruction, cmd = a.instruction.Update(msg)
	return a, cmd
}

func (a *App) dispatch(ev viewstate.Event) {
	a.view = viewstate.Reduce(a.view, ev)
	a.resize()
}

func (a *App) moveFocus(delta int) {
	a.focus = (a.focus + delta + fieldCount) % fieldCount
	if a.focus == fieldKeywords {
		a.keywords.Focus()
	} else {
		a.keywords.Blur()
	}
}

func (a *App) cycle(delta int) {
	wrap := func(i, n int) int { return (i + delta + n) % n }
	switch a.focus {
	case fieldPeriod:
		a.period = wrap(a.period, len(generator.Periods))
	case fieldTone:
		a.tone = wrap(a.tone, len(generator.Tones))
	case fieldLength:
		a.length = wrap(a.length, len(generator.Lengths))
	}
}

func (a *App) brief() generator.Brief {
	return generator.Brief{
		Keywords: a.keywords.Value(),
		Period:   generator.Periods[a.period],
		Tone:     generator.Tones[a.tone],
		Length:   generator.Lengths[a.length],
	}
}

func (a *App) submitDraft() tea.Cmd {
	if a.busy {
		return nil
	}
	brief := a.brief()
	if err := brief.Validate(); err != nil {
		a.err = err
		return nil
	}
	a.busy, a.err, a.percent, a.stage = true, nil, 0, ""
	ctx, orch := a.ctx, a.orch
	return func() tea.Msg {
		_, err := orch.SubmitConfig(ctx, brief)
		return draftDoneMsg{err: err}
	}
}

func (a *App) submitInstruction() tea.Cmd {
	text := a.instruction.Value()
	if a.busy || text == "" {
		return nil
	}
	a.instruction.Reset()
	a.busy, a.err, a.status = true, nil, "Updating draft..."
	ctx, orch := a.ctx, a.orch
	return func() tea.Msg {
		res, err := orch.SubmitInstruction(ctx, text)
		return editDoneMsg{op: "Edit", res: res, err: err}
	}
}

func (a *App) submitTranslation(language string) tea.Cmd {
	if a.busy {
		return nil
	}
	a.busy, a.err, a.status = true, nil, "Translating to "+language+"..."
	ctx, orch := a.ctx, a.orch
	return func() tea.Msg {
		res, err := orch.SubmitTranslation(ctx, language)
		return editDoneMsg{op: "Translation", res: res, err: err}
	}
}

func (a *App) exportTo(format export.Format) tea.Cmd {
	snap, ok := a.orch.Document().Article()
	if !ok {
		a.err = article.ErrNoArticle
		return nil
	}
	dir := a.exportDir
	return func() tea.Msg {
		path, err := export.WriteFile(dir, snap, format)
		return exportDoneMsg{path: path, err: err}
	}
}

func (a *App) chooseMenu(n int) tea.Cmd {
	switch {
	case a.view.LangMenuOpen:
		a.dispatch(viewstate.Event{Kind: viewstate.CloseMenus})
		if n < len(generator.Languages) {
			return a.submitTranslation(generator.Languages[n])
		}
	case a.view.ExportMenuOpen:
		a.dispatch(viewstate.Event{Kind: viewstate.CloseMenus})
		if n < len(export.Formats) {
			return a.exportTo(export.Formats[n])
		}
	}
	return nil
}

func menuIndex(key string) (int, bool) {
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		return int(key[0] - '1'), true
	}
	return 0, false
}

func (a *App) resize() {
	w := a.width
	if a.view.SidebarOpen {
		w -= sidebarWidth
	}
	a.body.Width = max(20, w-2)
	a.body.Height = max(5, a.height-8)
	a.instruction.Width = max(20, w-6)
}

func (a *App) refreshBody() {
	snap, ok := a.orch.Document().Article()
	if !ok {
		return
	}
	if a.view.Tab == viewstate.TabPreview {
		a.body.SetContent(previewText(snap, a.body.Width))
	} else {
		a.body.SetContent(snap.Body)
	}
}

// Run starts the editor on the terminal and blocks until the user quits.
func Run(ctx context.Context, orch *revision.Orchestrator, opts ...Option) error {
	app := NewApp(ctx, orch, opts...)
	defer orch.Close()
	_, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}
