package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/appdeck/internal/lifecycle"
	"github.com/five82/appdeck/internal/prefs"
	"github.com/five82/appdeck/internal/state"
)

// CatalogSource is the read side of state.Catalog the console needs.
type CatalogSource interface {
	Snapshot() state.CatalogSnapshot
	RefreshCatalog(ctx context.Context) error
}

// TransitionSource exposes the pending transitions.
type TransitionSource interface {
	Snapshot() state.TransitionSnapshot
}

// Operator starts and cancels transitions. *lifecycle.Coordinator satisfies
// it.
type Operator interface {
	Start(ctx context.Context, kind state.Kind, id string) error
	Cancel(id string) bool
	Outcome(id string) (lifecycle.Result, bool)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Catalog   CatalogSource
	Tracker   TransitionSource
	Operator  Operator
	Logger    *zap.Logger
	APIURL    string
	LogPath   string
	PollTick  time.Duration
	ThemeName string
	Tab       string
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	catalog   CatalogSource
	tracker   TransitionSource
	operator  Operator
	logger    *zap.Logger
	apiURL    string
	logPath   string
	prefsPath string
	pollTick  time.Duration

	keys     keyMap
	help     help.Model
	theme    Theme
	tab      Tab
	width    int
	height   int
	ready    bool
	showHelp bool
	showLogs bool

	catalogSnap state.CatalogSnapshot
	transitions state.TransitionSnapshot
	rows        []row
	selectedID  string
	selectedRow int

	// watching holds ids whose write was accepted and whose outcome has not
	// been reported yet.
	watching map[string]state.Kind
	status   statusLine

	logViewport viewport.Model
	logLines    []string
}

type statusLine struct {
	text  string
	isErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return Model{
		ctx:       ctx,
		catalog:   opts.Catalog,
		tracker:   opts.Tracker,
		operator:  opts.Operator,
		logger:    logger,
		apiURL:    opts.APIURL,
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     GetTheme(opts.ThemeName),
		tab:       ParseTab(opts.Tab),
		watching:  make(map[string]state.Kind),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.pollTick),
		fetchSnapshotCmd(m.catalog, m.tracker),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.logHeight())
		}
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{fetchSnapshotCmd(m.catalog, m.tracker), tickCmd(m.pollTick)}
		if m.showLogs {
			cmds = append(cmds, tailLogCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.applySnapshot(msg)
		m.reportOutcomes()
		return m, nil

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case refreshDoneMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("refresh failed: %v", msg.err))
		} else {
			m.setInfo("catalog refreshed")
		}
		return m, fetchSnapshotCmd(m.catalog, m.tracker)

	case logTailMsg:
		m.handleLogTail(msg)
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.SwitchTab):
		if m.tab == TabInstalled {
			m.tab = TabCatalog
		} else {
			m.tab = TabInstalled
		}
		m.rebuildRows()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.resizeLogViewport()
		if m.showLogs {
			return m, tailLogCmd(m.logPath)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.setInfo("refreshing...")
		return m, refreshCmd(m.ctx, m.catalog)

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Top):
		m.moveSelection(-len(m.rows))
	case key.Matches(msg, m.keys.Bottom):
		m.moveSelection(len(m.rows))

	case key.Matches(msg, m.keys.Install):
		return m.startAction(state.KindInstall)
	case key.Matches(msg, m.keys.Uninstall):
		return m.startAction(state.KindUninstall)
	case key.Matches(msg, m.keys.Update):
		return m.startAction(state.KindUpdate)
	case key.Matches(msg, m.keys.Cancel):
		return m.cancelSelected()
	}
	return m, nil
}

func (m Model) startAction(kind state.Kind) (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok || m.operator == nil {
		return m, nil
	}
	if allowed, reason := actionFor(kind, r); !allowed {
		m.setError(reason)
		return m, nil
	}
	m.setInfo(fmt.Sprintf("requesting %s of %s...", kind, r.App.DisplayName()))
	return m, actionCmd(m.ctx, m.operator, kind, r.App.ID, r.App.DisplayName())
}

func (m Model) cancelSelected() (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok || m.operator == nil {
		return m, nil
	}
	if m.operator.Cancel(r.App.ID) {
		delete(m.watching, r.App.ID)
		m.setInfo(fmt.Sprintf("stopped tracking %s", r.App.DisplayName()))
		return m, fetchSnapshotCmd(m.catalog, m.tracker)
	}
	m.setError(fmt.Sprintf("%s has nothing in progress", r.App.DisplayName()))
	return m, nil
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.watching[msg.id] = msg.kind
		m.setInfo(fmt.Sprintf("%s %s: %s", msg.kind.Progressive(), msg.name, "waiting for the change to show up"))
	case errors.Is(msg.err, lifecycle.ErrTransitionInProgress):
		m.setError(fmt.Sprintf("%s already has an operation in progress", msg.name))
	default:
		m.logger.Warn("operation failed", zap.String("app", msg.id), zap.Stringer("kind", msg.kind), zap.Error(msg.err))
		m.setError(fmt.Sprintf("%s %s failed: %v", msg.kind, msg.name, msg.err))
	}
	return m, fetchSnapshotCmd(m.catalog, m.tracker)
}

// reportOutcomes surfaces how watched transitions ended.
func (m *Model) reportOutcomes() {
	if m.operator == nil {
		return
	}
	for id, kind := range m.watching {
		res, ok := m.operator.Outcome(id)
		if !ok || res.Kind != kind {
			continue
		}
		delete(m.watching, id)
		switch res.Outcome {
		case lifecycle.OutcomeCompleted:
			m.setInfo(fmt.Sprintf("%s %s complete", kind, id))
		case lifecycle.OutcomeTimedOut:
			m.setError(fmt.Sprintf("%s %s not confirmed after %d checks", kind, id, res.Attempts))
		case lifecycle.OutcomeCancelled:
			m.setInfo(fmt.Sprintf("stopped tracking %s", id))
		}
	}
}

func (m *Model) applySnapshot(msg snapshotMsg) {
	m.catalogSnap = msg.catalog
	m.transitions = msg.transitions
	m.rebuildRows()
}

func (m *Model) rebuildRows() {
	m.rows = buildRows(m.tab, m.catalogSnap, m.transitions)
	m.selectedRow = 0
	for i, r := range m.rows {
		if r.App.ID == m.selectedID {
			m.selectedRow = i
			return
		}
	}
	if len(m.rows) > 0 {
		m.selectedID = m.rows[0].App.ID
	} else {
		m.selectedID = ""
	}
}

func (m *Model) moveSelection(delta int) {
	if len(m.rows) == 0 {
		return
	}
	next := m.selectedRow + delta
	if next < 0 {
		next = 0
	}
	if next > len(m.rows)-1 {
		next = len(m.rows) - 1
	}
	m.selectedRow = next
	m.selectedID = m.rows[next].App.ID
}

func (m Model) selected() (row, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.selectedRow], true
}

func (m *Model) setInfo(text string)  { m.status = statusLine{text: text} }
func (m *Model) setError(text string) { m.status = statusLine{text: text, isErr: true} }

func (m Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, Tab: m.tab.String()}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save preferences", zap.Error(err))
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	catalog     state.CatalogSnapshot
	transitions state.TransitionSnapshot
}

type actionDoneMsg struct {
	kind state.Kind
	id   string
	name string
	err  error
}

type refreshDoneMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(catalog CatalogSource, tracker TransitionSource) tea.Cmd {
	return func() tea.Msg {
		var msg snapshotMsg
		if catalog != nil {
			msg.catalog = catalog.Snapshot()
		}
		if tracker != nil {
			msg.transitions = tracker.Snapshot()
		}
		return msg
	}
}

func actionCmd(ctx context.Context, op Operator, kind state.Kind, id, name string) tea.Cmd {
	return func() tea.Msg {
		err := op.Start(ctx, kind, id)
		return actionDoneMsg{kind: kind, id: id, name: name, err: err}
	}
}

func refreshCmd(ctx context.Context, catalog CatalogSource) tea.Cmd {
	if catalog == nil {
		return nil
	}
	return func() tea.Msg {
		return refreshDoneMsg{err: catalog.RefreshCatalog(ctx)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
