package ui

import (
	"strings"
	"testing"

	"appcatalog/internal/pagination"

	"github.com/stretchr/testify/assert"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("CATALOG_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when CATALOG_DARK_MODE=1")
	}

	t.Setenv("CATALOG_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when CATALOG_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark)
}

func TestThemeFor(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("CATALOG_DARK_MODE", "")
	assert.True(t, ThemeFor("dark").IsDark)
	assert.False(t, ThemeFor("light").IsDark)
	assert.False(t, ThemeFor("auto").IsDark)
}

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable("Test Table", []string{"Col1", "Col2"})
	table.AddRow("Row1Col1", "Row1Col2")
	table.Footer = "page 1"

	view := table.View(DefaultStyles())
	if !strings.Contains(view, "Test Table") {
		t.Error("View missing title")
	}
	if !strings.Contains(view, "Row1Col1") {
		t.Error("View missing cell content")
	}
	assert.Contains(t, view, "page 1")
}

func TestSimpleTable_Empty(t *testing.T) {
	table := NewSimpleTable("Nothing", []string{"A"})
	view := table.View(DefaultStyles())
	assert.Contains(t, view, "Nothing")
	assert.Contains(t, view, "(none)")
}

func TestPageFooter(t *testing.T) {
	items := make([]int, 23)
	assert.Empty(t, PageFooter(pagination.Paginate(items[:5], 10, 1)))

	footer := PageFooter(pagination.Paginate(items, 10, 2))
	assert.Contains(t, footer, "Showing 11-20 of 23")
	assert.Contains(t, footer, "[2]")
	assert.Contains(t, footer, "‹")
	assert.Contains(t, footer, "›")
}
