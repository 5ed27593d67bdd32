package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"appcatalog/internal/catalog"
	"appcatalog/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrIncomplete is returned by Finish when no application or product is selected.
	ErrIncomplete = errors.New("select an application and a product before submitting")
	// ErrSubmitting is returned by Finish while an earlier submission is in flight.
	ErrSubmitting = errors.New("submission already in progress")
	// ErrNotReviewed is returned by Finish outside the review step.
	ErrNotReviewed = errors.New("onboarding can only be submitted from review")
)

// Backend is the set of collaborator calls the wizard depends on.
type Backend interface {
	GetServiceInstances(ctx context.Context, appID string) ([]catalog.ServiceInstance, error)
	GetAvailableRepos(ctx context.Context, appID string) ([]catalog.Repo, error)
	GetAvailableBitbucketRepos(ctx context.Context, appID string) ([]catalog.Repo, error)
	GetAvailableJiraProjects(ctx context.Context, appID string) ([]catalog.JiraProject, error)
	CompleteOnboarding(ctx context.Context, apps []catalog.App, req catalog.OnboardingRequest) (*catalog.Association, error)
}

// History persists completed onboardings.
type History interface {
	RecordAssociation(ctx context.Context, sessionID string, app catalog.App, assoc catalog.Association) error
}

// Options wires optional collaborators into a Session.
type Options struct {
	Cache        *catalog.Cache // updated after a successful submission
	History      History        // records successful submissions
	Notify       func()         // called after background state changes
	FetchTimeout time.Duration  // per reference fetch; 0 means no limit
}

// Submission is the outcome of the last Finish call.
type Submission struct {
	Error       string
	Succeeded   bool
	Association *catalog.Association
}

// Session is one run of the onboarding wizard. All methods are safe for
// concurrent use; background fetches apply their results under the same lock.
type Session struct {
	backend      Backend
	cache        *catalog.Cache
	history      History
	notifyFn     func()
	fetchTimeout time.Duration
	id           string

	wg sync.WaitGroup

	mu            sync.Mutex
	step          Step
	app           *catalog.App
	product       *catalog.Product
	instances     []catalog.ServiceInstance
	availRepos    []catalog.Repo
	selectedRepos map[string]struct{}
	manualRepos   []catalog.Repo
	availJira     []catalog.JiraProject
	selectedJira  map[string]struct{}
	manualJira    []catalog.JiraProject
	docs          []catalog.DocEntry
	lastError     string
	submission    Submission

	gen         uint64
	cancelFetch context.CancelFunc
	pending     int
	submitting  bool
}

// NewSession creates an empty session positioned on the search step.
func NewSession(backend Backend, opts Options) *Session {
	s := &Session{
		backend:      backend,
		cache:        opts.Cache,
		history:      opts.History,
		notifyFn:     opts.Notify,
		fetchTimeout: opts.FetchTimeout,
		id:           uuid.NewString(),
	}
	s.clearLocked()
	logging.WizardDebug("session %s created", s.id)
	return s
}

// ID returns the session identifier used in logs and history.
func (s *Session) ID() string { return s.id }

// clearLocked restores the initial state. Caller holds s.mu (or owns s exclusively).
func (s *Session) clearLocked() {
	s.step = StepSearch
	s.app = nil
	s.product = nil
	s.clearDownstreamLocked()
	s.submission = Submission{}
}

func (s *Session) clearDownstreamLocked() {
	s.instances = nil
	s.availRepos = nil
	s.selectedRepos = make(map[string]struct{})
	s.manualRepos = nil
	s.availJira = nil
	s.selectedJira = make(map[string]struct{})
	s.manualJira = nil
	s.docs = nil
	s.lastError = ""
	s.pending = 0
}

// invalidateLocked bumps the generation so in-flight fetches and submissions
// discard their results. A submission still in flight no longer blocks Finish.
func (s *Session) invalidateLocked() uint64 {
	s.gen++
	s.submitting = false
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	return s.gen
}

func (s *Session) notify() {
	if s.notifyFn != nil {
		s.notifyFn()
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SelectApp starts the flow for app: downstream state is cleared, the session
// moves to the product step and the app's reference data is fetched in the
// background. It never waits for the fetch.
func (s *Session) SelectApp(ctx context.Context, app catalog.App) {
	s.mu.Lock()
	gen := s.invalidateLocked()
	selected := app
	s.app = &selected
	s.product = nil
	s.clearDownstreamLocked()
	s.submission = Submission{}
	s.step = StepProduct
	s.pending = 3

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelFetch = cancel
	s.mu.Unlock()

	logging.Wizard("session %s: selected app %s (%s), onboarded=%v", s.id, app.ID, app.Name, app.IsOnboarded)

	s.wg.Add(1)
	go s.fetchReferenceData(fetchCtx, gen, app.ID)
}

// SelectProduct records the product and moves on: to review for an application
// that is already onboarded elsewhere, otherwise to details.
func (s *Session) SelectProduct(product catalog.Product) {
	s.mu.Lock()
	p := product
	s.product = &p
	if s.app != nil && s.app.IsOnboarded {
		s.step = StepReview
	} else {
		s.step = StepDetails
	}
	step := s.step
	s.mu.Unlock()

	logging.WizardDebug("session %s: selected product %s, now on %s", s.id, product.ID, step)
}

// GoNext advances one step when the current step is complete. Review only
// leaves through Finish and result is terminal, so both report false.
func (s *Session) GoNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step >= StepReview || !s.canProceedLocked(s.step) {
		return false
	}
	next := s.step + 1
	for skipped(next, s.onboardedLocked()) {
		next++
	}
	s.step = next
	return true
}

// GoBack retreats one step, applying the onboarded-app skip. It reports false
// on the first step and on the result of a successful submission.
func (s *Session) GoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step <= firstStep || (s.step == StepResult && s.submission.Succeeded) {
		return false
	}
	prev := s.step - 1
	for skipped(prev, s.onboardedLocked()) {
		prev--
	}
	s.step = prev
	return true
}

func (s *Session) onboardedLocked() bool {
	return s.app != nil && s.app.IsOnboarded
}

// CanProceed reports whether step is complete enough to move forward.
func (s *Session) CanProceed(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canProceedLocked(step)
}

func (s *Session) canProceedLocked(step Step) bool {
	switch step {
	case StepProduct:
		return s.product != nil
	case StepInstances:
		return len(s.instances) > 0
	case StepRepos:
		return len(s.selectedRepos)+len(s.manualRepos) > 0
	case StepJira:
		return len(s.selectedJira)+len(s.manualJira) > 0
	case StepDocs:
		return len(s.docs) >= catalog.RequiredDocCount()
	default:
		return true
	}
}

// Reset restores the empty initial state and abandons in-flight fetches.
func (s *Session) Reset() {
	s.mu.Lock()
	s.invalidateLocked()
	s.clearLocked()
	s.mu.Unlock()

	logging.WizardDebug("session %s reset", s.id)
}

// DismissError clears the advisory fetch error.
func (s *Session) DismissError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

// Wait blocks until background fetches started by SelectApp have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// fetchReferenceData loads service instances, repositories and Jira projects in
// parallel. Each fetch fails on its own; a failure leaves its list empty and
// adds to lastError.
func (s *Session) fetchReferenceData(ctx context.Context, gen uint64, appID string) {
	defer s.wg.Done()

	timer := logging.StartTimer(logging.CategoryWizard, "reference fetch "+appID)
	defer timer.Stop()

	var g errgroup.Group
	g.Go(func() error {
		fctx, cancel := s.fetchContext(ctx)
		defer cancel()
		instances, err := s.backend.GetServiceInstances(fctx, appID)
		s.applyFetch(gen, "service instances", err, func() {
			s.instances = instances
		})
		return nil
	})
	g.Go(func() error {
		fctx, cancel := s.fetchContext(ctx)
		defer cancel()
		repos, err := s.fetchRepos(fctx, appID)
		s.applyFetch(gen, "repositories", err, func() {
			s.setAvailableReposLocked(repos)
		})
		return nil
	})
	g.Go(func() error {
		fctx, cancel := s.fetchContext(ctx)
		defer cancel()
		projects, err := s.backend.GetAvailableJiraProjects(fctx, appID)
		s.applyFetch(gen, "Jira projects", err, func() {
			s.setAvailableJiraLocked(projects)
		})
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	if s.gen == gen && s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.mu.Unlock()
}

func (s *Session) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.fetchTimeout > 0 {
		return context.WithTimeout(ctx, s.fetchTimeout)
	}
	return context.WithCancel(ctx)
}

// fetchRepos merges both repository sources. The GitLab list wins on duplicate
// ids. Results from a source that succeeded are kept when the other fails.
func (s *Session) fetchRepos(ctx context.Context, appID string) ([]catalog.Repo, error) {
	var (
		gitlab, bitbucket []catalog.Repo
		glErr, bbErr      error
		g                 errgroup.Group
	)
	g.Go(func() error {
		gitlab, glErr = s.backend.GetAvailableRepos(ctx, appID)
		return nil
	})
	g.Go(func() error {
		bitbucket, bbErr = s.backend.GetAvailableBitbucketRepos(ctx, appID)
		return nil
	})
	_ = g.Wait()

	merged := mergeRepos(gitlab, bitbucket)
	return merged, errors.Join(glErr, bbErr)
}

func mergeRepos(lists ...[]catalog.Repo) []catalog.Repo {
	seen := make(map[string]struct{})
	var out []catalog.Repo
	for _, list := range lists {
		for _, r := range list {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// applyFetch runs apply under the lock if gen is still current and records a
// fetch failure as an advisory message.
func (s *Session) applyFetch(gen uint64, what string, err error, apply func()) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		logging.WizardDebug("session %s: dropped stale %s (gen=%d)", s.id, what, gen)
		return
	}
	apply()
	if err != nil {
		msg := "Failed to load " + what
		if s.lastError == "" {
			s.lastError = msg
		} else {
			s.lastError += "; " + msg
		}
	}
	if s.pending > 0 {
		s.pending--
	}
	s.mu.Unlock()

	if err != nil {
		logging.WizardWarn("session %s: failed to load %s: %v", s.id, what, err)
	}
	s.notify()
}

// setAvailableReposLocked installs the available list. Manual entries that turn
// out to be available move over and stay selected.
func (s *Session) setAvailableReposLocked(repos []catalog.Repo) {
	s.availRepos = repos
	kept := s.manualRepos[:0]
	for _, m := range s.manualRepos {
		if s.availableRepoLocked(m.ID) {
			s.selectedRepos[m.ID] = struct{}{}
			continue
		}
		kept = append(kept, m)
	}
	s.manualRepos = kept
}

func (s *Session) setAvailableJiraLocked(projects []catalog.JiraProject) {
	s.availJira = projects
	kept := s.manualJira[:0]
	for _, m := range s.manualJira {
		if s.availableJiraLocked(m.Key) {
			s.selectedJira[m.Key] = struct{}{}
			continue
		}
		kept = append(kept, m)
	}
	s.manualJira = kept
}

// =============================================================================
// REPOSITORIES AND JIRA PROJECTS
// =============================================================================

func (s *Session) availableRepoLocked(id string) bool {
	for _, r := range s.availRepos {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) availableJiraLocked(key string) bool {
	for _, p := range s.availJira {
		if p.Key == key {
			return true
		}
	}
	return false
}

// ToggleRepo flips the selection of an available repository.
func (s *Session) ToggleRepo(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.availableRepoLocked(id) {
		return
	}
	toggle(s.selectedRepos, id)
}

// ToggleJira flips the selection of an available Jira project.
func (s *Session) ToggleJira(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.availableJiraLocked(key) {
		return
	}
	toggle(s.selectedJira, key)
}

func toggle(set map[string]struct{}, id string) {
	if _, ok := set[id]; ok {
		delete(set, id)
		return
	}
	set[id] = struct{}{}
}

// SelectAllRepos selects every available repository, or none.
func (s *Session) SelectAllRepos(all bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedRepos = make(map[string]struct{})
	if all {
		for _, r := range s.availRepos {
			s.selectedRepos[r.ID] = struct{}{}
		}
	}
}

// SelectAllJira selects every available Jira project, or none.
func (s *Session) SelectAllJira(all bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedJira = make(map[string]struct{})
	if all {
		for _, p := range s.availJira {
			s.selectedJira[p.Key] = struct{}{}
		}
	}
}

// normalizeRepo fills in identity and source for a manually attached repository.
func normalizeRepo(r catalog.Repo) (catalog.Repo, bool) {
	r.ID = strings.TrimSpace(r.ID)
	r.URL = strings.TrimSpace(r.URL)
	r.Name = strings.TrimSpace(r.Name)
	if r.ID == "" {
		r.ID = r.URL
	}
	if r.ID == "" {
		return r, false
	}
	if r.Name == "" {
		r.Name = r.ID
	}
	if r.Source == "" {
		r.Source = catalog.RepoSourceManual
	}
	return r, true
}

// AddManualRepo attaches repo. An available repository with the same id is
// selected instead, and a repository already attached is left alone.
func (s *Session) AddManualRepo(repo catalog.Repo) {
	r, ok := normalizeRepo(repo)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.availableRepoLocked(r.ID) {
		s.selectedRepos[r.ID] = struct{}{}
		return
	}
	for _, m := range s.manualRepos {
		if m.ID == r.ID {
			return
		}
	}
	s.manualRepos = append(s.manualRepos, r)
}

// AddManualJira attaches project, with the same rules as AddManualRepo.
func (s *Session) AddManualJira(project catalog.JiraProject) {
	project.Key = strings.TrimSpace(project.Key)
	if project.Key == "" {
		return
	}
	if strings.TrimSpace(project.Name) == "" {
		project.Name = project.Key
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.availableJiraLocked(project.Key) {
		s.selectedJira[project.Key] = struct{}{}
		return
	}
	for _, m := range s.manualJira {
		if m.Key == project.Key {
			return
		}
	}
	s.manualJira = append(s.manualJira, project)
}

// RemoveManualRepo detaches a manually added repository.
func (s *Session) RemoveManualRepo(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.manualRepos[:0]
	for _, r := range s.manualRepos {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.manualRepos = kept
}

// RemoveManualJira detaches a manually added Jira project.
func (s *Session) RemoveManualJira(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.manualJira[:0]
	for _, p := range s.manualJira {
		if p.Key != key {
			kept = append(kept, p)
		}
	}
	s.manualJira = kept
}

// =============================================================================
// DOCUMENTATION
// =============================================================================

// AddDoc links a required document type to url. Empty input is ignored, and a
// type that is unknown or already linked is rejected. It reports whether the
// entry was added.
func (s *Session) AddDoc(docType catalog.DocType, url string) bool {
	docType = catalog.DocType(strings.TrimSpace(string(docType)))
	url = strings.TrimSpace(url)
	if docType == "" || url == "" {
		return false
	}
	if !catalog.IsRequiredDocType(docType) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.Type == docType {
			return false
		}
	}
	s.docs = append(s.docs, catalog.DocEntry{Type: docType, URL: url})
	return true
}

// RemoveDoc drops the entry for docType.
func (s *Session) RemoveDoc(docType catalog.DocType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, d := range s.docs {
		if d.Type != docType {
			kept = append(kept, d)
		}
	}
	s.docs = kept
}

// AvailableDocTypes lists the required types that have no entry yet, in the
// canonical order.
func (s *Session) AvailableDocTypes() []catalog.DocType {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make(map[catalog.DocType]struct{}, len(s.docs))
	for _, d := range s.docs {
		added[d.Type] = struct{}{}
	}
	var out []catalog.DocType
	for _, t := range catalog.RequiredDocTypes() {
		if _, ok := added[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// =============================================================================
// SUBMISSION
// =============================================================================

// requestLocked flattens the selections: selected available items in list
// order, then manual items.
func (s *Session) requestLocked() catalog.OnboardingRequest {
	req := catalog.OnboardingRequest{
		ProductID:     s.product.ID,
		ProductName:   s.product.Name,
		Repos:         []catalog.Repo{},
		JiraProjects:  []catalog.JiraProject{},
		Documentation: append([]catalog.DocEntry{}, s.docs...),
	}
	for _, r := range s.availRepos {
		if _, ok := s.selectedRepos[r.ID]; ok {
			req.Repos = append(req.Repos, r)
		}
	}
	req.Repos = append(req.Repos, s.manualRepos...)
	for _, p := range s.availJira {
		if _, ok := s.selectedJira[p.Key]; ok {
			req.JiraProjects = append(req.JiraProjects, p)
		}
	}
	req.JiraProjects = append(req.JiraProjects, s.manualJira...)
	return req
}

// Finish submits the onboarding from the review step. Either way the session
// ends on the result step with the outcome in Submission; selections are kept
// so a failed attempt can be retried from review. The submission error is also
// returned.
func (s *Session) Finish(ctx context.Context) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitting
	}
	if s.app == nil || s.product == nil {
		s.mu.Unlock()
		return ErrIncomplete
	}
	if s.step != StepReview {
		step := s.step
		s.mu.Unlock()
		return fmt.Errorf("%w (on %s)", ErrNotReviewed, step)
	}
	app := *s.app
	product := *s.product
	req := s.requestLocked()
	gen := s.gen
	s.submitting = true
	s.submission = Submission{}
	s.mu.Unlock()
	s.notify()

	logging.Wizard("session %s: submitting %s -> %s (%d repos, %d jira, %d docs)",
		s.id, app.ID, product.ID, len(req.Repos), len(req.JiraProjects), len(req.Documentation))

	timer := logging.StartTimer(logging.CategoryWizard, "complete onboarding")
	assoc, err := s.backend.CompleteOnboarding(ctx, []catalog.App{app}, req)
	timer.Stop()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		logging.WizardWarn("session %s: submission finished after reset, outcome discarded", s.id)
		if err != nil {
			return fmt.Errorf("complete onboarding: %w", err)
		}
		return nil
	}
	s.submitting = false
	s.step = StepResult
	if err != nil {
		s.submission = Submission{Error: err.Error()}
	} else {
		assoc = completeAssociation(assoc, app, req)
		s.submission = Submission{Succeeded: true, Association: assoc}
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		logging.WizardError("session %s: onboarding failed: %v", s.id, err)
		return fmt.Errorf("complete onboarding: %w", err)
	}

	logging.Wizard("session %s: onboarding complete (association %s)", s.id, assoc.ID)
	if s.cache != nil {
		s.cache.AppendAssociation([]catalog.App{app}, product)
	}
	if s.history != nil {
		if herr := s.history.RecordAssociation(context.WithoutCancel(ctx), s.id, app, *assoc); herr != nil {
			logging.WizardWarn("session %s: failed to record history: %v", s.id, herr)
		}
	}
	return nil
}

// completeAssociation fills whatever the backend left out of its answer from
// the submitted request, so the outcome and history describe what was onboarded.
func completeAssociation(assoc *catalog.Association, app catalog.App, req catalog.OnboardingRequest) *catalog.Association {
	var out catalog.Association
	if assoc != nil {
		out = *assoc
	}
	if out.ProductID == "" {
		out.ProductID = req.ProductID
	}
	if out.ProductName == "" {
		out.ProductName = req.ProductName
	}
	if len(out.AppIDs) == 0 {
		out.AppIDs = []string{app.ID}
	}
	if len(out.Repos) == 0 {
		out.Repos = req.Repos
	}
	if len(out.JiraProjects) == 0 {
		out.JiraProjects = req.JiraProjects
	}
	if len(out.Documentation) == 0 {
		out.Documentation = req.Documentation
	}
	return &out
}
