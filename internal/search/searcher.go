// Package search implements the async term search used by the console's lookup
// inputs. A Searcher owns one term at a time; responses for a term that is no
// longer current are dropped when they arrive, whatever order they arrive in.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"appcatalog/internal/logging"
)

const (
	// DefaultMinChars is the shortest term that triggers a request.
	DefaultMinChars = 2

	// FailureMessage is shown to the user for any failed search.
	FailureMessage = "Search failed. Please try again."
)

// Func performs one search. It should honour ctx; superseded requests are cancelled.
type Func[T any] func(ctx context.Context, term string) ([]T, error)

// State is the observable state of a Searcher.
type State[T any] struct {
	Term    string
	Results []T
	Loading bool
	Err     string // user facing message, empty when the last search succeeded
	Cause   error  // underlying error behind Err
}

// Options configures a Searcher.
type Options[T any] struct {
	MinChars int           // defaults to DefaultMinChars when < 1
	Debounce time.Duration // goroutine mode only; 0 runs immediately
	Name     string        // used in log lines
	OnChange func(State[T])
}

// Request is one pending search, produced by Begin and consumed by Run/Apply.
type Request struct {
	Gen  uint64
	Term string
	ctx  context.Context
}

// Searcher runs searches for the latest term and publishes their outcome.
type Searcher[T any] struct {
	fn       Func[T]
	minChars int
	name     string
	onChange func(State[T])

	debouncer *Debouncer
	wg        sync.WaitGroup

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State[T]
}

// New creates a Searcher around fn.
func New[T any](fn Func[T], opts Options[T]) *Searcher[T] {
	minChars := opts.MinChars
	if minChars < 1 {
		minChars = DefaultMinChars
	}
	s := &Searcher[T]{
		fn:       fn,
		minChars: minChars,
		name:     opts.Name,
		onChange: opts.OnChange,
	}
	if opts.Debounce > 0 {
		s.debouncer = NewDebouncer(opts.Debounce)
	}
	return s
}

// MinChars returns the configured threshold.
func (s *Searcher[T]) MinChars() int { return s.minChars }

// State returns a copy of the current state.
func (s *Searcher[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Searcher[T]) snapshotLocked() State[T] {
	st := s.state
	if st.Results != nil {
		st.Results = append([]T(nil), st.Results...)
	}
	return st
}

// Begin records term as the current term and invalidates any earlier request.
// When the term is below the threshold the state is cleared and ok is false.
// Otherwise the state is marked loading and the returned request must be run.
func (s *Searcher[T]) Begin(term string) (req Request, ok bool) {
	s.mu.Lock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state.Term = term

	if len([]rune(strings.TrimSpace(term))) < s.minChars {
		s.state.Results = nil
		s.state.Loading = false
		s.state.Err = ""
		s.state.Cause = nil
		s.mu.Unlock()
		return Request{Gen: s.gen, Term: term}, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state.Loading = true
	req = Request{Gen: s.gen, Term: strings.TrimSpace(term), ctx: ctx}
	s.mu.Unlock()

	logging.SearchDebug("%s: begin %q (gen=%d)", s.label(), req.Term, req.Gen)
	return req, true
}

// Run executes the search for req. It does not touch the state.
func (s *Searcher[T]) Run(req Request) ([]T, error) {
	ctx := req.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return s.fn(ctx, req.Term)
}

// Apply publishes the outcome of request gen. It reports false and leaves the
// state alone when gen is no longer current.
func (s *Searcher[T]) Apply(gen uint64, results []T, err error) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		logging.SearchDebug("%s: dropped stale response (gen=%d)", s.label(), gen)
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state.Loading = false
	if err != nil {
		s.state.Results = nil
		s.state.Err = FailureMessage
		s.state.Cause = err
	} else {
		if results == nil {
			results = []T{}
		}
		s.state.Results = results
		s.state.Err = ""
		s.state.Cause = nil
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		logging.SearchWarn("%s: search %q failed: %v", s.label(), st.Term, err)
	}
	return true
}

// SetTerm is the self-driving form of Begin/Run/Apply: the request runs on its
// own goroutine (after the debounce delay, if any) and OnChange is called every
// time the state changes.
func (s *Searcher[T]) SetTerm(term string) {
	req, ok := s.Begin(term)
	s.notify()
	if !ok {
		s.cancelPending()
		return
	}

	s.wg.Add(1)
	run := func() {
		defer s.wg.Done()
		results, err := s.Run(req)
		if s.Apply(req.Gen, results, err) {
			s.notify()
		}
	}

	if s.debouncer == nil {
		go run()
		return
	}
	if s.debouncer.Debounce(run) {
		s.wg.Done()
	}
}

// Reset clears the term and results and invalidates every in-flight request.
func (s *Searcher[T]) Reset() {
	s.mu.Lock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = State[T]{}
	s.mu.Unlock()

	s.cancelPending()
	s.notify()
}

// Wait blocks until every request started through SetTerm has settled.
func (s *Searcher[T]) Wait() {
	s.wg.Wait()
}

func (s *Searcher[T]) cancelPending() {
	if s.debouncer != nil && s.debouncer.Cancel() {
		s.wg.Done()
	}
}

func (s *Searcher[T]) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.State())
}

func (s *Searcher[T]) label() string {
	if s.name == "" {
		return "search"
	}
	return s.name
}
