package ui

import (
	"context"
	"sync"
	"time"

	"appcatalog/internal/catalog"
	"appcatalog/internal/logging"
	"appcatalog/internal/pagination"
	"appcatalog/internal/search"
	"appcatalog/internal/wizard"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MESSAGES
// =============================================================================

// refreshMsg asks for a re-render after background state changed.
type refreshMsg struct{}

// finishedMsg carries the outcome of Session.Finish.
type finishedMsg struct{ err error }

// Notifier forwards background state changes into a running program. It is a
// no-op until a program is attached.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
	pending bool
}

// Attach routes future notifications to p.
func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	n.mu.Unlock()
}

// Notify queues a refresh for the attached program without blocking, so it is
// safe to call from inside Update. Notifications that arrive while a refresh is
// still queued are folded into it.
func (n *Notifier) Notify() {
	n.mu.Lock()
	p := n.program
	if p == nil || n.pending {
		n.mu.Unlock()
		return
	}
	n.pending = true
	n.mu.Unlock()

	go func() {
		n.mu.Lock()
		n.pending = false
		n.mu.Unlock()
		p.Send(refreshMsg{})
	}()
}

// =============================================================================
// WIZARD MODEL
// =============================================================================

// Lookups are the backend searches behind the wizard's search inputs.
type Lookups struct {
	Apps     search.Func[catalog.App]
	Products search.Func[catalog.Product]
	Repos    search.Func[catalog.Repo]
	Jira     search.Func[catalog.JiraProject]
}

// WizardOptions configures a WizardModel.
type WizardOptions struct {
	Session  *wizard.Session
	Lookups  Lookups
	Cache    *catalog.Cache // annotates application search results
	Notifier *Notifier      // shared with the session's Notify hook
	Styles   Styles
	MinChars int
	Debounce time.Duration
	PageSize int
	Context  context.Context
}

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputLookup
	inputDocURL
)

// viewState is the per-step UI state that does not belong to the session.
type viewState struct {
	cursor      int
	lookup      int // cursor within manual lookup results
	mode        inputMode
	hint        string
	confirmQuit bool
}

// WizardModel is the bubbletea model for the onboarding wizard.
type WizardModel struct {
	ctx      context.Context
	session  *wizard.Session
	cache    *catalog.Cache
	styles   Styles
	pageSize int

	apps     *search.Searcher[catalog.App]
	products *search.Searcher[catalog.Product]
	repos    *search.Searcher[catalog.Repo]
	jira     *search.Searcher[catalog.JiraProject]

	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	view     viewState
	lastStep wizard.Step
	outcome  *wizard.Submission

	width  int
	height int
}

// NewWizardModel creates the wizard screen around an existing session.
func NewWizardModel(opts WizardOptions) WizardModel {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = pagination.DefaultPageSize
	}

	var notify func()
	if opts.Notifier != nil {
		notify = opts.Notifier.Notify
	}

	ti := textinput.New()
	ti.Placeholder = "Search applications..."
	ti.Prompt = "› "
	ti.CharLimit = 200
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Styles.Spinner

	m := WizardModel{
		ctx:      ctx,
		session:  opts.Session,
		cache:    opts.Cache,
		styles:   opts.Styles,
		pageSize: pageSize,
		apps:     newSearcher(opts.Lookups.Apps, "apps", opts, notify),
		products: newSearcher(opts.Lookups.Products, "products", opts, notify),
		repos:    newSearcher(opts.Lookups.Repos, "repos", opts, notify),
		jira:     newSearcher(opts.Lookups.Jira, "jira", opts, notify),
		input:    ti,
		spinner:  sp,
		view:     viewState{mode: inputSearch},
		lastStep: opts.Session.Step(),
		width:    80,
		height:   24,
	}
	m.renderer = newRenderer(m.width, opts.Styles.Theme.IsDark)
	return m
}

func newSearcher[T any](fn search.Func[T], name string, opts WizardOptions, notify func()) *search.Searcher[T] {
	if fn == nil {
		fn = func(context.Context, string) ([]T, error) { return nil, nil }
	}
	so := search.Options[T]{MinChars: opts.MinChars, Debounce: opts.Debounce, Name: name}
	if notify != nil {
		so.OnChange = func(search.State[T]) { notify() }
	}
	return search.New(fn, so)
}

func newRenderer(width int, dark bool) *glamour.TermRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	wrap := width - 4
	if wrap < 40 {
		wrap = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		logging.UIDebug("glamour renderer unavailable: %v", err)
		return nil
	}
	return r
}

// Outcome is the submission outcome once the wizard has closed after a
// submission, or nil when it was cancelled.
func (m WizardModel) Outcome() *wizard.Submission {
	return m.outcome
}

// Wait blocks until the wizard's background searches have settled.
func (m WizardModel) Wait() {
	m.apps.Wait()
	m.products.Wait()
	m.repos.Wait()
	m.jira.Wait()
	m.session.Wait()
}

// Init is called when the program starts.
func (m WizardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update processes messages and key events.
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = clampWidth(msg.Width-6, 60)
		m.renderer = newRenderer(msg.Width, m.styles.Theme.IsDark)
		return m, nil

	case tea.KeyMsg:
		next, cmd := m.handleKey(msg)
		return next.syncStep(), cmd

	case refreshMsg:
		return m.syncStep(), nil

	case finishedMsg:
		if msg.err != nil {
			logging.UIDebug("submission failed: %v", msg.err)
		}
		return m.syncStep(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.view.mode != inputNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// syncStep resets per-step UI state whenever the session moved to another step.
func (m WizardModel) syncStep() WizardModel {
	step := m.session.Step()
	if step == m.lastStep {
		return m
	}
	m.lastStep = step
	m.view.cursor = 0
	m.view.lookup = 0
	m.view.hint = ""
	m.session.DismissError()
	m.input.SetValue("")

	switch step {
	case wizard.StepSearch:
		m.setMode(inputSearch, "Search applications...")
	case wizard.StepProduct:
		m.setMode(inputSearch, "Search products...")
	default:
		m.setMode(inputNone, "")
	}
	return m
}

func (m *WizardModel) setMode(mode inputMode, placeholder string) {
	m.view.mode = mode
	m.input.Placeholder = placeholder
	if mode == inputNone {
		m.input.Blur()
		return
	}
	m.input.Focus()
}

func clampWidth(w, max int) int {
	if w < 20 {
		return 20
	}
	if w > max {
		return max
	}
	return w
}

// finishCmd runs the submission off the update loop.
func (m WizardModel) finishCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return finishedMsg{err: session.Finish(ctx)}
	}
}

// close records the outcome, discards the session state and quits.
func (m WizardModel) close() (WizardModel, tea.Cmd) {
	snap := m.session.Snapshot()
	if snap.Step == wizard.StepResult {
		sub := snap.Submission
		m.outcome = &sub
	}
	m.apps.Reset()
	m.products.Reset()
	m.repos.Reset()
	m.jira.Reset()
	m.session.Reset()
	m.lastStep = wizard.StepSearch
	return m, tea.Quit
}
