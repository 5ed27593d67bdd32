package ui

import (
	"strconv"
	"strings"

	"appcatalog/internal/catalog"
	"appcatalog/internal/search"
	"appcatalog/internal/wizard"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// KEY HANDLING
// =============================================================================
// Keys are translated into session operations. The session owns every piece of
// onboarding state; the model only keeps cursors and input focus.

func (m WizardModel) handleKey(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	key := msg.String()

	// Quit confirmation takes priority.
	if m.view.confirmQuit {
		if key == "y" || key == "Y" {
			return m.close()
		}
		m.view.confirmQuit = false
		return m, nil
	}
	if key == "ctrl+c" {
		return m.close()
	}

	snap := m.session.Snapshot()
	if snap.Submitting {
		return m, nil
	}
	m.view.hint = ""

	switch snap.Step {
	case wizard.StepSearch:
		return m.handleSearchKey(msg, snap)
	case wizard.StepProduct:
		return m.handleProductKey(msg, snap)
	case wizard.StepDetails, wizard.StepInstances:
		return m.handleInfoKey(key, snap)
	case wizard.StepRepos:
		if m.view.mode == inputLookup {
			return m.handleRepoLookupKey(msg)
		}
		return m.handleReposKey(key, snap)
	case wizard.StepJira:
		if m.view.mode == inputLookup {
			return m.handleJiraLookupKey(msg)
		}
		return m.handleJiraKey(key, snap)
	case wizard.StepDocs:
		if m.view.mode == inputDocURL {
			return m.handleDocURLKey(msg, snap)
		}
		return m.handleDocsKey(key, snap)
	case wizard.StepReview:
		return m.handleReviewKey(key)
	case wizard.StepResult:
		return m.handleResultKey(key, snap)
	}
	return m, nil
}

// typeInto forwards msg to the text input and restarts the search when the
// term changed.
func typeInto[T any](m WizardModel, msg tea.KeyMsg, s *search.Searcher[T]) (WizardModel, tea.Cmd) {
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		s.SetTerm(after)
		m.view.lookup = 0
		m.view.cursor = 0
	}
	return m, cmd
}

func moveCursor(cursor, delta, n int) int {
	cursor += delta
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

func (m WizardModel) next(blocked string) (WizardModel, tea.Cmd) {
	if !m.session.GoNext() {
		m.view.hint = blocked
	}
	return m, nil
}

// appResults returns the current application results marked with what the
// console already knows about onboarding.
func (m WizardModel) appResults() []catalog.App {
	results := m.apps.State().Results
	if m.cache != nil {
		results = m.cache.Annotate(results)
	}
	return results
}

func (m WizardModel) handleSearchKey(msg tea.KeyMsg, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.close()
	case "up":
		m.view.cursor = moveCursor(m.view.cursor, -1, len(m.appResults()))
		return m, nil
	case "down":
		m.view.cursor = moveCursor(m.view.cursor, 1, len(m.appResults()))
		return m, nil
	case "enter":
		results := m.appResults()
		if m.view.cursor >= len(results) {
			m.view.hint = "Type at least " + strconv.Itoa(m.apps.MinChars()) + " characters and pick an application."
			return m, nil
		}
		app := results[m.view.cursor]
		m.apps.Reset()
		m.session.SelectApp(m.ctx, app)
		return m, nil
	case "tab":
		if snap.SelectedApp != nil {
			return m.next("")
		}
		return m, nil
	}
	return typeInto(m, msg, m.apps)
}

func (m WizardModel) handleProductKey(msg tea.KeyMsg, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	results := m.products.State().Results
	switch msg.String() {
	case "esc":
		m.products.Reset()
		m.session.GoBack()
		return m, nil
	case "up":
		m.view.cursor = moveCursor(m.view.cursor, -1, len(results))
		return m, nil
	case "down":
		m.view.cursor = moveCursor(m.view.cursor, 1, len(results))
		return m, nil
	case "enter":
		if m.view.cursor >= len(results) {
			m.view.hint = "Pick a product to continue."
			return m, nil
		}
		product := results[m.view.cursor]
		m.products.Reset()
		m.session.SelectProduct(product)
		return m, nil
	case "tab":
		return m.next("Pick a product to continue.")
	}
	return typeInto(m, msg, m.products)
}

func (m WizardModel) handleInfoKey(key string, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	switch key {
	case "q":
		m.view.confirmQuit = true
	case "esc", "left", "backspace":
		m.session.GoBack()
	case "enter", "tab", "right":
		blocked := ""
		if snap.Step == wizard.StepInstances {
			blocked = "At least one service instance is required."
			if snap.Loading {
				blocked = "Service instances are still loading."
			}
		}
		return m.next(blocked)
	}
	return m, nil
}

// =============================================================================
// REPOSITORIES
// =============================================================================

func (m WizardModel) handleReposKey(key string, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	rows := repoRows(snap)
	switch key {
	case "q":
		m.view.confirmQuit = true
	case "esc", "left":
		m.session.GoBack()
	case "up", "k":
		m.view.cursor = moveCursor(m.view.cursor, -1, len(rows))
	case "down", "j":
		m.view.cursor = moveCursor(m.view.cursor, 1, len(rows))
	case "]", "pgdown":
		m.view.cursor = moveCursor(m.view.cursor, m.pageSize, len(rows))
	case "[", "pgup":
		m.view.cursor = moveCursor(m.view.cursor, -m.pageSize, len(rows))
	case " ", "space":
		if m.view.cursor < len(rows) && !rows[m.view.cursor].manual {
			m.session.ToggleRepo(rows[m.view.cursor].repo.ID)
		}
	case "a":
		m.session.SelectAllRepos(true)
	case "c":
		m.session.SelectAllRepos(false)
	case "d", "delete":
		if m.view.cursor < len(rows) && rows[m.view.cursor].manual {
			m.session.RemoveManualRepo(rows[m.view.cursor].repo.ID)
			m.view.cursor = moveCursor(m.view.cursor, 0, len(rows)-1)
		}
	case "/":
		m.input.SetValue("")
		m.setMode(inputLookup, "Search repositories or paste a URL...")
		return m, textinput.Blink
	case "enter", "tab", "right":
		return m.next("Select or add at least one repository.")
	}
	return m, nil
}

func (m WizardModel) handleRepoLookupKey(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	results := m.repos.State().Results
	switch msg.String() {
	case "esc":
		m.repos.Reset()
		m.input.SetValue("")
		m.setMode(inputNone, "")
		return m, nil
	case "up":
		m.view.lookup = moveCursor(m.view.lookup, -1, len(results))
		return m, nil
	case "down":
		m.view.lookup = moveCursor(m.view.lookup, 1, len(results))
		return m, nil
	case "enter":
		term := strings.TrimSpace(m.input.Value())
		switch {
		case m.view.lookup < len(results):
			m.session.AddManualRepo(results[m.view.lookup])
		case looksLikeURL(term):
			m.session.AddManualRepo(catalog.Repo{URL: term, Name: repoNameFromURL(term)})
		default:
			m.view.hint = "Pick a search result or paste a repository URL."
			return m, nil
		}
		m.repos.Reset()
		m.input.SetValue("")
		m.setMode(inputNone, "")
		return m, nil
	}
	return typeInto(m, msg, m.repos)
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "ssh://") || strings.HasPrefix(s, "git@")
}

func repoNameFromURL(u string) string {
	u = strings.TrimSuffix(strings.TrimRight(u, "/"), ".git")
	if i := strings.LastIndexAny(u, "/:"); i >= 0 && i < len(u)-1 {
		return u[i+1:]
	}
	return u
}

// =============================================================================
// JIRA PROJECTS
// =============================================================================

func (m WizardModel) handleJiraKey(key string, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	rows := jiraRows(snap)
	switch key {
	case "q":
		m.view.confirmQuit = true
	case "esc", "left":
		m.session.GoBack()
	case "up", "k":
		m.view.cursor = moveCursor(m.view.cursor, -1, len(rows))
	case "down", "j":
		m.view.cursor = moveCursor(m.view.cursor, 1, len(rows))
	case "]", "pgdown":
		m.view.cursor = moveCursor(m.view.cursor, m.pageSize, len(rows))
	case "[", "pgup":
		m.view.cursor = moveCursor(m.view.cursor, -m.pageSize, len(rows))
	case " ", "space":
		if m.view.cursor < len(rows) && !rows[m.view.cursor].manual {
			m.session.ToggleJira(rows[m.view.cursor].project.Key)
		}
	case "a":
		m.session.SelectAllJira(true)
	case "c":
		m.session.SelectAllJira(false)
	case "d", "delete":
		if m.view.cursor < len(rows) && rows[m.view.cursor].manual {
			m.session.RemoveManualJira(rows[m.view.cursor].project.Key)
			m.view.cursor = moveCursor(m.view.cursor, 0, len(rows)-1)
		}
	case "/":
		m.input.SetValue("")
		m.setMode(inputLookup, "Search Jira projects or type a project key...")
		return m, textinput.Blink
	case "enter", "tab", "right":
		return m.next("Select or add at least one Jira project.")
	}
	return m, nil
}

func (m WizardModel) handleJiraLookupKey(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	results := m.jira.State().Results
	switch msg.String() {
	case "esc":
		m.jira.Reset()
		m.input.SetValue("")
		m.setMode(inputNone, "")
		return m, nil
	case "up":
		m.view.lookup = moveCursor(m.view.lookup, -1, len(results))
		return m, nil
	case "down":
		m.view.lookup = moveCursor(m.view.lookup, 1, len(results))
		return m, nil
	case "enter":
		term := strings.ToUpper(strings.TrimSpace(m.input.Value()))
		switch {
		case m.view.lookup < len(results):
			m.session.AddManualJira(results[m.view.lookup])
		case isProjectKey(term):
			m.session.AddManualJira(catalog.JiraProject{Key: term})
		default:
			m.view.hint = "Pick a search result or type a project key."
			return m, nil
		}
		m.jira.Reset()
		m.input.SetValue("")
		m.setMode(inputNone, "")
		return m, nil
	}
	return typeInto(m, msg, m.jira)
}

// isProjectKey accepts Jira style keys: a letter followed by letters, digits or '_'.
func isProjectKey(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// =============================================================================
// DOCUMENTATION
// =============================================================================

func (m WizardModel) handleDocsKey(key string, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	rows := docRows(snap, m.session.AvailableDocTypes())
	switch key {
	case "q":
		m.view.confirmQuit = true
	case "esc", "left":
		m.session.GoBack()
	case "up", "k":
		m.view.cursor = moveCursor(m.view.cursor, -1, len(rows))
	case "down", "j":
		m.view.cursor = moveCursor(m.view.cursor, 1, len(rows))
	case "enter":
		if m.view.cursor < len(rows) && rows[m.view.cursor].entry == nil {
			m.input.SetValue("")
			m.setMode(inputDocURL, "URL for "+string(rows[m.view.cursor].docType))
			return m, textinput.Blink
		}
		return m.next("All required documents need a link.")
	case "d", "delete":
		if m.view.cursor < len(rows) && rows[m.view.cursor].entry != nil {
			m.session.RemoveDoc(rows[m.view.cursor].docType)
		}
	case "tab", "right":
		return m.next("All required documents need a link.")
	}
	return m, nil
}

func (m WizardModel) handleDocURLKey(msg tea.KeyMsg, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	rows := docRows(snap, m.session.AvailableDocTypes())
	switch msg.String() {
	case "esc":
		m.input.SetValue("")
		m.setMode(inputNone, "")
		return m, nil
	case "enter":
		if m.view.cursor < len(rows) {
			if !m.session.AddDoc(rows[m.view.cursor].docType, m.input.Value()) {
				m.view.hint = "Enter a link for the document."
				return m, nil
			}
		}
		m.input.SetValue("")
		m.setMode(inputNone, "")
		m.view.cursor = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// REVIEW AND RESULT
// =============================================================================

func (m WizardModel) handleReviewKey(key string) (WizardModel, tea.Cmd) {
	switch key {
	case "q":
		m.view.confirmQuit = true
	case "esc", "left", "backspace":
		m.session.GoBack()
	case "enter":
		m.view.hint = "Submitting..."
		return m, m.finishCmd()
	}
	return m, nil
}

func (m WizardModel) handleResultKey(key string, snap wizard.Snapshot) (WizardModel, tea.Cmd) {
	switch key {
	case "esc", "b", "left":
		if !snap.Submission.Succeeded {
			m.session.GoBack()
			return m, nil
		}
		return m.close()
	case "enter", "q":
		return m.close()
	}
	return m, nil
}
