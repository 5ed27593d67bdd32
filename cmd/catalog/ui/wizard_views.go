package ui

import (
	"fmt"
	"strings"

	"appcatalog/internal/catalog"
	"appcatalog/internal/pagination"
	"appcatalog/internal/search"
	"appcatalog/internal/wizard"

	"github.com/charmbracelet/lipgloss"
)

// frame is everything a step renderer may look at. Renderers are pure
// functions of a frame.
type frame struct {
	snap       wizard.Snapshot
	view       viewState
	styles     Styles
	input      string
	spinner    string
	apps       search.State[catalog.App]
	products   search.State[catalog.Product]
	repoLookup search.State[catalog.Repo]
	jiraLookup search.State[catalog.JiraProject]
	docTypes   []catalog.DocType
	minChars   int
	pageSize   int
	width      int
	markdown   func(string) string
}

func (m WizardModel) frame() frame {
	apps := m.apps.State()
	if m.cache != nil {
		apps.Results = m.cache.Annotate(apps.Results)
	}
	return frame{
		snap:       m.session.Snapshot(),
		view:       m.view,
		styles:     m.styles,
		input:      m.input.View(),
		spinner:    m.spinner.View(),
		apps:       apps,
		products:   m.products.State(),
		repoLookup: m.repos.State(),
		jiraLookup: m.jira.State(),
		docTypes:   m.session.AvailableDocTypes(),
		minChars:   m.apps.MinChars(),
		pageSize:   m.pageSize,
		width:      m.width,
		markdown:   m.renderMarkdown,
	}
}

func (m WizardModel) renderMarkdown(md string) string {
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// View renders the current wizard step.
func (m WizardModel) View() string {
	f := m.frame()

	sections := []string{renderHeader(f), ""}
	if f.snap.LastError != "" {
		sections = append(sections, f.styles.Banner.Render(f.snap.LastError+" You can still add items manually."), "")
	}

	switch f.snap.Step {
	case wizard.StepSearch:
		sections = append(sections, renderSearch(f))
	case wizard.StepProduct:
		sections = append(sections, renderProduct(f))
	case wizard.StepDetails:
		sections = append(sections, renderDetails(f))
	case wizard.StepInstances:
		sections = append(sections, renderInstances(f))
	case wizard.StepRepos:
		sections = append(sections, renderRepos(f))
	case wizard.StepJira:
		sections = append(sections, renderJira(f))
	case wizard.StepDocs:
		sections = append(sections, renderDocs(f))
	case wizard.StepReview:
		sections = append(sections, renderReview(f))
	case wizard.StepResult:
		sections = append(sections, renderResult(f))
	}

	if f.view.hint != "" {
		sections = append(sections, "", f.styles.Warning.Render(f.view.hint))
	}
	if f.view.confirmQuit {
		sections = append(sections, "", f.styles.Banner.Render("Quit onboarding? Your selections will be lost.  y/n"))
	}

	sections = append(sections, "", f.styles.RenderDivider(clampWidth(f.width-4, 76)), renderFooter(f))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// CHROME
// =============================================================================

func renderHeader(f frame) string {
	title := f.styles.Header.Render(fmt.Sprintf("Add application · %s", f.snap.Step.Title()))

	var crumbs []string
	for _, step := range wizard.Steps() {
		name := step.String()
		switch {
		case step == f.snap.Step:
			crumbs = append(crumbs, f.styles.Cursor.Render(name))
		case f.snap.Onboarded() && step > wizard.StepProduct && step < wizard.StepReview:
			crumbs = append(crumbs, f.styles.Muted.Strikethrough(true).Render(name))
		default:
			crumbs = append(crumbs, f.styles.Muted.Render(name))
		}
	}
	return title + "\n" + strings.Join(crumbs, f.styles.Muted.Render(" › "))
}

func renderFooter(f frame) string {
	var keys string
	switch f.snap.Step {
	case wizard.StepSearch:
		keys = "type to search · ↑/↓ move · enter select · esc cancel"
	case wizard.StepProduct:
		keys = "type to search · ↑/↓ move · enter select · esc back"
	case wizard.StepRepos, wizard.StepJira:
		if f.view.mode == inputLookup {
			keys = "type to search · ↑/↓ move · enter add · esc done"
		} else {
			keys = "space toggle · a all · c clear · / add manually · d remove · [/] page · enter next · esc back"
		}
	case wizard.StepDocs:
		if f.view.mode == inputDocURL {
			keys = "enter save · esc cancel"
		} else {
			keys = "enter add link / next · d remove · tab next · esc back"
		}
	case wizard.StepReview:
		keys = "enter submit · esc back · q quit"
	case wizard.StepResult:
		if f.snap.Submission.Succeeded {
			keys = "enter close"
		} else {
			keys = "b back to review · enter close"
		}
	default:
		keys = "enter next · esc back · q quit"
	}
	return f.styles.Footer.Render(keys)
}

func cursorMark(f frame, selected bool) string {
	if selected {
		return f.styles.Cursor.Render("›")
	}
	return " "
}

func checkbox(f frame, checked bool) string {
	if checked {
		return f.styles.Selected.Render("[x]")
	}
	return "[ ]"
}

func searchStatus[T any](f frame, st search.State[T], minChars int) string {
	switch {
	case st.Loading:
		return f.spinner + " Searching..."
	case st.Err != "":
		return f.styles.Error.Render(st.Err)
	case len([]rune(strings.TrimSpace(st.Term))) < minChars:
		return f.styles.Muted.Render(fmt.Sprintf("Type at least %d characters.", minChars))
	case len(st.Results) == 0:
		return f.styles.Muted.Render("No matches.")
	}
	return ""
}

// =============================================================================
// SEARCH AND PRODUCT
// =============================================================================

func renderSearch(f frame) string {
	var sb strings.Builder
	sb.WriteString(f.styles.Title.Render("Which application do you want to onboard?") + "\n")
	sb.WriteString(f.input + "\n\n")

	if status := searchStatus(f, f.apps, f.minChars); status != "" && len(f.apps.Results) == 0 {
		sb.WriteString(status + "\n")
		return sb.String()
	}
	for i, app := range f.apps.Results {
		line := fmt.Sprintf("%s %s  %s", cursorMark(f, i == f.view.cursor), app.DisplayName(), f.styles.Muted.Render(app.ID))
		if app.IsOnboarded {
			line += "  " + f.styles.Badge.Render("onboarded")
		}
		sb.WriteString(line + "\n")
	}
	if f.apps.Loading {
		sb.WriteString(f.spinner + " Searching...\n")
	}
	return sb.String()
}

func renderProduct(f frame) string {
	var sb strings.Builder
	if f.snap.SelectedApp != nil {
		sb.WriteString(f.styles.Subtitle.Render("Application: "+f.snap.SelectedApp.DisplayName()) + "\n")
		if f.snap.Onboarded() {
			sb.WriteString(f.styles.Info.Render("Already onboarded to another product; you will go straight to review.") + "\n")
		}
	}
	sb.WriteString(f.styles.Title.Render("Which product does it belong to?") + "\n")
	if f.snap.SelectedProduct != nil {
		sb.WriteString(f.styles.Muted.Render("Current: "+f.snap.SelectedProduct.Name+" (tab to keep)") + "\n")
	}
	sb.WriteString(f.input + "\n\n")

	if status := searchStatus(f, f.products, f.minChars); status != "" && len(f.products.Results) == 0 {
		sb.WriteString(status + "\n")
		return sb.String()
	}
	for i, p := range f.products.Results {
		line := fmt.Sprintf("%s %s", cursorMark(f, i == f.view.cursor), p.Name)
		if p.Owner != "" {
			line += "  " + f.styles.Muted.Render(p.Owner)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// =============================================================================
// DETAILS AND INSTANCES
// =============================================================================

func renderDetails(f frame) string {
	app := f.snap.SelectedApp
	if app == nil {
		return f.styles.Muted.Render("No application selected.")
	}
	table := NewSimpleTable("Application details", []string{"Field", "Value"})
	table.AddRow("Name", app.Name)
	if app.ShortName != "" {
		table.AddRow("Short name", app.ShortName)
	}
	table.AddRow("ID", app.ID)
	for _, row := range [][2]string{
		{"Owner", app.Owner},
		{"Criticality", app.Criticality},
		{"Status", app.Status},
		{"Description", app.Description},
	} {
		if row[1] != "" {
			table.AddRow(row[0], row[1])
		}
	}
	if f.snap.SelectedProduct != nil {
		table.AddRow("Product", f.snap.SelectedProduct.Name)
	}
	return table.View(f.styles)
}

func renderInstances(f frame) string {
	if f.snap.Loading && len(f.snap.ServiceInstances) == 0 {
		return f.spinner + " Loading service instances..."
	}
	table := NewSimpleTable(fmt.Sprintf("Service instances (%d)", len(f.snap.ServiceInstances)),
		[]string{"Name", "Environment", "Role", "Status"})
	for _, si := range f.snap.ServiceInstances {
		table.AddRow(si.Name, si.Environment, si.Role, si.Status)
	}
	return table.View(f.styles)
}

// =============================================================================
// REPOSITORIES AND JIRA
// =============================================================================

type repoRow struct {
	repo     catalog.Repo
	manual   bool
	selected bool
}

// repoRows lists available repositories followed by manual ones, which are
// always included.
func repoRows(snap wizard.Snapshot) []repoRow {
	rows := make([]repoRow, 0, len(snap.AvailableRepos)+len(snap.ManualRepos))
	for _, r := range snap.AvailableRepos {
		rows = append(rows, repoRow{repo: r, selected: snap.RepoSelected(r.ID)})
	}
	for _, r := range snap.ManualRepos {
		rows = append(rows, repoRow{repo: r, manual: true, selected: true})
	}
	return rows
}

type jiraRow struct {
	project  catalog.JiraProject
	manual   bool
	selected bool
}

func jiraRows(snap wizard.Snapshot) []jiraRow {
	rows := make([]jiraRow, 0, len(snap.AvailableJiraProjects)+len(snap.ManualJiraProjects))
	for _, p := range snap.AvailableJiraProjects {
		rows = append(rows, jiraRow{project: p, selected: snap.JiraSelected(p.Key)})
	}
	for _, p := range snap.ManualJiraProjects {
		rows = append(rows, jiraRow{project: p, manual: true, selected: true})
	}
	return rows
}

// pageOf returns the page that contains the cursor, with the absolute index of
// its first row.
func pageOf[T any](rows []T, cursor, pageSize int) (pagination.Page[T], int) {
	if pageSize < 1 {
		pageSize = pagination.DefaultPageSize
	}
	page := pagination.Paginate(rows, pageSize, cursor/pageSize+1)
	offset := 0
	if page.StartIndex > 0 {
		offset = page.StartIndex - 1
	}
	return page, offset
}

func renderRepos(f frame) string {
	rows := repoRows(f.snap)
	page, offset := pageOf(rows, f.view.cursor, f.pageSize)

	table := NewSimpleTable(fmt.Sprintf("Repositories (%d selected)", f.snap.RepoCount()),
		[]string{"", "", "Name", "Source", "URL"})
	for i, row := range page.Items {
		source := string(row.repo.Source)
		if row.manual {
			source = "manual"
		}
		table.AddRow(cursorMark(f, offset+i == f.view.cursor), checkbox(f, row.selected), row.repo.Name, source, row.repo.URL)
	}
	table.Footer = PageFooter(page)

	var sb strings.Builder
	if f.snap.Loading && len(f.snap.AvailableRepos) == 0 {
		sb.WriteString(f.spinner + " Loading repositories...\n")
	}
	sb.WriteString(table.View(f.styles))
	if f.view.mode == inputLookup {
		sb.WriteString(renderLookup(f, f.repoLookup, func(r catalog.Repo) string {
			return r.Name + "  " + f.styles.Muted.Render(r.URL)
		}))
	}
	return sb.String()
}

func renderJira(f frame) string {
	rows := jiraRows(f.snap)
	page, offset := pageOf(rows, f.view.cursor, f.pageSize)

	table := NewSimpleTable(fmt.Sprintf("Jira projects (%d selected)", f.snap.JiraCount()),
		[]string{"", "", "Key", "Name", "Lead"})
	for i, row := range page.Items {
		name := row.project.Name
		if row.manual {
			name += " (manual)"
		}
		table.AddRow(cursorMark(f, offset+i == f.view.cursor), checkbox(f, row.selected), row.project.Key, name, row.project.Lead)
	}
	table.Footer = PageFooter(page)

	var sb strings.Builder
	if f.snap.Loading && len(f.snap.AvailableJiraProjects) == 0 {
		sb.WriteString(f.spinner + " Loading Jira projects...\n")
	}
	sb.WriteString(table.View(f.styles))
	if f.view.mode == inputLookup {
		sb.WriteString(renderLookup(f, f.jiraLookup, func(p catalog.JiraProject) string {
			return p.Key + "  " + p.Name
		}))
	}
	return sb.String()
}

func renderLookup[T any](f frame, st search.State[T], label func(T) string) string {
	var sb strings.Builder
	sb.WriteString("\n" + f.styles.Prompt.Render("Add manually") + "\n")
	sb.WriteString(f.input + "\n")
	if status := searchStatus(f, st, f.minChars); status != "" {
		sb.WriteString(status + "\n")
	}
	for i, item := range st.Results {
		sb.WriteString(fmt.Sprintf("%s %s\n", cursorMark(f, i == f.view.lookup), label(item)))
	}
	return sb.String()
}

// =============================================================================
// DOCUMENTATION
// =============================================================================

type docRow struct {
	docType catalog.DocType
	entry   *catalog.DocEntry
}

// docRows lists the types still missing a link, then the links already added.
func docRows(snap wizard.Snapshot, available []catalog.DocType) []docRow {
	rows := make([]docRow, 0, catalog.RequiredDocCount())
	for _, t := range available {
		rows = append(rows, docRow{docType: t})
	}
	for i := range snap.AddedDocs {
		entry := snap.AddedDocs[i]
		rows = append(rows, docRow{docType: entry.Type, entry: &entry})
	}
	return rows
}

func renderDocs(f frame) string {
	rows := docRows(f.snap, f.docTypes)

	var sb strings.Builder
	sb.WriteString(f.styles.Title.Render(fmt.Sprintf("Documentation (%d of %d linked)", len(f.snap.AddedDocs), catalog.RequiredDocCount())) + "\n")
	for i, row := range rows {
		mark := cursorMark(f, i == f.view.cursor)
		if row.entry == nil {
			sb.WriteString(fmt.Sprintf("%s %s %s\n", mark, checkbox(f, false), row.docType))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s %s  %s\n", mark, checkbox(f, true), row.docType, f.styles.Muted.Render(row.entry.URL)))
	}
	if f.view.mode == inputDocURL {
		sb.WriteString("\n" + f.input + "\n")
	}
	return sb.String()
}

// =============================================================================
// REVIEW AND RESULT
// =============================================================================

// selectedRepos flattens the selection the way it will be submitted.
func selectedRepos(snap wizard.Snapshot) []catalog.Repo {
	var out []catalog.Repo
	for _, r := range snap.AvailableRepos {
		if snap.RepoSelected(r.ID) {
			out = append(out, r)
		}
	}
	return append(out, snap.ManualRepos...)
}

func selectedJira(snap wizard.Snapshot) []catalog.JiraProject {
	var out []catalog.JiraProject
	for _, p := range snap.AvailableJiraProjects {
		if snap.JiraSelected(p.Key) {
			out = append(out, p)
		}
	}
	return append(out, snap.ManualJiraProjects...)
}

// reviewMarkdown is the submission summary shown on the review step.
func reviewMarkdown(snap wizard.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("# Review onboarding\n\n")
	if snap.SelectedApp != nil {
		fmt.Fprintf(&sb, "**Application:** %s (`%s`)\n\n", snap.SelectedApp.DisplayName(), snap.SelectedApp.ID)
	}
	if snap.SelectedProduct != nil {
		fmt.Fprintf(&sb, "**Product:** %s\n\n", snap.SelectedProduct.Name)
	}
	if snap.Onboarded() {
		sb.WriteString("> This application is already onboarded to another product. It will be attached to this product as well.\n\n")
	}

	repos := selectedRepos(snap)
	fmt.Fprintf(&sb, "## Repositories (%d)\n\n", len(repos))
	for _, r := range repos {
		fmt.Fprintf(&sb, "- %s _(%s)_\n", r.Name, r.Source)
	}

	projects := selectedJira(snap)
	fmt.Fprintf(&sb, "\n## Jira projects (%d)\n\n", len(projects))
	for _, p := range projects {
		fmt.Fprintf(&sb, "- **%s** %s\n", p.Key, p.Name)
	}

	fmt.Fprintf(&sb, "\n## Documentation (%d)\n\n", len(snap.AddedDocs))
	for _, d := range snap.AddedDocs {
		fmt.Fprintf(&sb, "- **%s**: %s\n", d.Type, d.URL)
	}
	return sb.String()
}

func renderReview(f frame) string {
	out := f.markdown(reviewMarkdown(f.snap))
	if f.snap.Submitting {
		out += "\n" + f.spinner + " Submitting..."
	}
	return out
}

func renderResult(f frame) string {
	sub := f.snap.Submission
	if sub.Succeeded {
		var sb strings.Builder
		sb.WriteString(f.styles.Success.Render("Onboarding complete.") + "\n")
		if f.snap.SelectedApp != nil && f.snap.SelectedProduct != nil {
			sb.WriteString(fmt.Sprintf("%s is now part of %s.\n", f.snap.SelectedApp.DisplayName(), f.snap.SelectedProduct.Name))
		}
		if sub.Association != nil && sub.Association.ID != "" {
			sb.WriteString(f.styles.Muted.Render("Association "+sub.Association.ID) + "\n")
		}
		return sb.String()
	}
	return f.styles.Error.Render("Onboarding failed: "+sub.Error) + "\n" +
		f.styles.Muted.Render("Your selections are kept. Go back to review them and submit again.")
}
