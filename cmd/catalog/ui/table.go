package ui

import (
	"fmt"
	"strconv"
	"strings"

	"appcatalog/internal/pagination"

	"github.com/charmbracelet/lipgloss"
)

// SimpleTable renders static rows with aligned columns.
type SimpleTable struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  string
}

// NewSimpleTable creates a new SimpleTable with the given title and headers.
func NewSimpleTable(title string, headers []string) *SimpleTable {
	return &SimpleTable{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles. An empty table renders
// only its title and footer.
func (t *SimpleTable) View(styles Styles) string {
	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}
	if len(t.Rows) == 0 {
		sb.WriteString(styles.Muted.Render("(none)"))
		sb.WriteString("\n")
		if t.Footer != "" {
			sb.WriteString(styles.Footer.Render(t.Footer) + "\n")
		}
		return sb.String()
	}

	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				if w := lipgloss.Width(cell); w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}
	// lipgloss Width includes padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	sepStyle := styles.Muted

	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(t.Headers)-1 {
			sb.WriteString(sepStyle.Render("|"))
		}
	}
	sb.WriteString("\n")

	totalWidth := len(t.Headers) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", totalWidth)) + "\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				sb.WriteString(rowStyle.Width(colWidths[i]).Render(cell))
				if i < len(row)-1 && i < len(colWidths)-1 {
					sb.WriteString(sepStyle.Render("|"))
				}
			}
		}
		sb.WriteString("\n")
	}

	if t.Footer != "" {
		sb.WriteString(styles.Footer.Render(t.Footer) + "\n")
	}
	return sb.String()
}

// PageFooter describes a page: "Showing 11-20 of 23  ‹ 1 [2] 3 ›". It is empty
// when the list fits on one page.
func PageFooter[T any](p pagination.Page[T]) string {
	if !p.ShowPagination {
		return ""
	}
	var nums []string
	for _, n := range p.PageNumbers(5) {
		if n == p.CurrentPage {
			nums = append(nums, "["+strconv.Itoa(n)+"]")
		} else {
			nums = append(nums, strconv.Itoa(n))
		}
	}
	prev, next := " ", " "
	if p.HasPrev() {
		prev = "‹"
	}
	if p.HasNext() {
		next = "›"
	}
	return fmt.Sprintf("Showing %d-%d of %d  %s %s %s", p.StartIndex, p.EndIndex, p.TotalItems, prev, strings.Join(nums, " "), next)
}
