package wizard

import (
	"sort"

	"appcatalog/internal/catalog"
)

// Snapshot is a detached copy of a Session for rendering. Mutating it has no
// effect on the session.
type Snapshot struct {
	ID                    string
	Step                  Step
	SelectedApp           *catalog.App
	SelectedProduct       *catalog.Product
	ServiceInstances      []catalog.ServiceInstance
	AvailableRepos        []catalog.Repo
	SelectedRepoIDs       []string // sorted
	ManualRepos           []catalog.Repo
	AvailableJiraProjects []catalog.JiraProject
	SelectedJiraKeys      []string // sorted
	ManualJiraProjects    []catalog.JiraProject
	AddedDocs             []catalog.DocEntry
	LastError             string
	Submission            Submission
	Loading               bool // reference data still arriving
	Submitting            bool
	CanProceed            bool // for Step
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:                    s.id,
		Step:                  s.step,
		ServiceInstances:      append([]catalog.ServiceInstance(nil), s.instances...),
		AvailableRepos:        append([]catalog.Repo(nil), s.availRepos...),
		SelectedRepoIDs:       sortedKeys(s.selectedRepos),
		ManualRepos:           append([]catalog.Repo(nil), s.manualRepos...),
		AvailableJiraProjects: append([]catalog.JiraProject(nil), s.availJira...),
		SelectedJiraKeys:      sortedKeys(s.selectedJira),
		ManualJiraProjects:    append([]catalog.JiraProject(nil), s.manualJira...),
		AddedDocs:             append([]catalog.DocEntry(nil), s.docs...),
		LastError:             s.lastError,
		Submission:            s.submission,
		Loading:               s.pending > 0,
		Submitting:            s.submitting,
		CanProceed:            s.canProceedLocked(s.step),
	}
	if s.app != nil {
		app := *s.app
		app.Products = append([]catalog.Product(nil), s.app.Products...)
		snap.SelectedApp = &app
	}
	if s.product != nil {
		p := *s.product
		snap.SelectedProduct = &p
	}
	if s.submission.Association != nil {
		a := *s.submission.Association
		snap.Submission.Association = &a
	}
	return snap
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RepoSelected reports whether the available repository id is selected.
func (s Snapshot) RepoSelected(id string) bool {
	i := sort.SearchStrings(s.SelectedRepoIDs, id)
	return i < len(s.SelectedRepoIDs) && s.SelectedRepoIDs[i] == id
}

// JiraSelected reports whether the available Jira project key is selected.
func (s Snapshot) JiraSelected(key string) bool {
	i := sort.SearchStrings(s.SelectedJiraKeys, key)
	return i < len(s.SelectedJiraKeys) && s.SelectedJiraKeys[i] == key
}

// RepoCount is the number of repositories that would be submitted.
func (s Snapshot) RepoCount() int {
	return len(s.SelectedRepoIDs) + len(s.ManualRepos)
}

// JiraCount is the number of Jira projects that would be submitted.
func (s Snapshot) JiraCount() int {
	return len(s.SelectedJiraKeys) + len(s.ManualJiraProjects)
}

// Onboarded reports whether the selected application is already onboarded
// to another product.
func (s Snapshot) Onboarded() bool {
	return s.SelectedApp != nil && s.SelectedApp.IsOnboarded
}

// Doc returns the entry for docType, if any.
func (s Snapshot) Doc(docType catalog.DocType) (catalog.DocEntry, bool) {
	for _, d := range s.AddedDocs {
		if d.Type == docType {
			return d, true
		}
	}
	return catalog.DocEntry{}, false
}
