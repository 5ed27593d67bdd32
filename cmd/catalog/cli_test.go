package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"appcatalog/internal/catalog"
	"appcatalog/internal/store"
	"appcatalog/internal/wizard"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliMu serializes tests that drive rootCmd; it holds package level flag state.
var cliMu sync.Mutex

// writeConfig writes a config pointing at baseURL with its database in dir.
func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`backend:
  base_url: %s
  timeout: 5s
  max_retries: 0
search:
  min_chars: 2
ui:
  page_size: 10
  theme: light
store:
  database_path: %s
logging:
  level: info
`, baseURL, filepath.Join(dir, "catalog.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cliMu.Lock()
	defer cliMu.Unlock()

	verbose, configPath, timeout = false, "", 2*time.Minute
	listPage, listPageSize, listFilters = 1, 0, nil
	outputFormat, itemFile = "yaml", ""
	historyPage, historyPageSize, historyApp = 1, 0, ""
	forceInit = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := runCLI(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, err = runCLI(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCLI(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	t.Setenv("CATALOG_API_TOKEN", "secret-token")
	out, err = runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url: http://localhost:8080")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "secret-token")
}

func TestResourceList_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/contacts", r.URL.Path)
		assert.Equal(t, "app-1", r.URL.Query().Get("appId"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "c3", "name": "Carol"},
				{"id": "c1", "name": "Alice", "role": "owner"},
				{"id": "c2", "name": "Bob"},
			},
		})
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, t.TempDir(), srv.URL)

	out, err := runCLI(t, "--config", cfgPath, "resource", "list", "contacts",
		"--filter", "appId=app-1", "--page-size", "2", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "contacts (3)")
	assert.Contains(t, out, "Carol")
	assert.NotContains(t, out, "Alice")
	assert.Contains(t, out, "Showing 3-3 of 3")
}

func TestResourceList_UnknownKind(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "http://localhost:1")
	_, err := runCLI(t, "--config", cfgPath, "resource", "list", "widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource kind")
}

func TestResourceGetCreateDelete(t *testing.T) {
	var (
		mu      sync.Mutex
		created map[string]interface{}
		deleted string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/risk-stories/r1":
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "r1", "title": "Unpatched OS", "severity": "high"})
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"no such risk"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/risk-stories":
			json.NewDecoder(r.Body).Decode(&created)
			created["id"] = "r2"
			json.NewEncoder(w).Encode(created)
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)

	out, err := runCLI(t, "--config", cfgPath, "resource", "get", "risks", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Unpatched OS")

	out, err = runCLI(t, "--config", cfgPath, "resource", "get", "risks", "r1", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"severity": "high"`)

	_, err = runCLI(t, "--config", cfgPath, "resource", "get", "risks", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	itemPath := filepath.Join(dir, "risk.yaml")
	require.NoError(t, os.WriteFile(itemPath, []byte("appId: app-1\ntitle: Weak TLS\n"), 0600))
	out, err = runCLI(t, "--config", cfgPath, "resource", "create", "risks", "--file", itemPath)
	require.NoError(t, err)
	assert.Contains(t, out, "id: r2")
	mu.Lock()
	assert.Equal(t, "Weak TLS", created["title"])
	mu.Unlock()

	out, err = runCLI(t, "--config", cfgPath, "resource", "delete", "risks", "r2")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted risks r2")
	mu.Lock()
	assert.Equal(t, "/api/risk-stories/r2", deleted)
	mu.Unlock()
}

func TestAppsSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cmdb/applications/search", r.URL.Path)
		assert.Equal(t, "bill", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode([]catalog.App{
			{ID: "app-1", Name: "Billing Service", ShortName: "Billing", IsOnboarded: true},
		})
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, t.TempDir(), srv.URL)

	out, err := runCLI(t, "--config", cfgPath, "apps", "search", "bill")
	require.NoError(t, err)
	assert.Contains(t, out, "Applications (1)")
	assert.Contains(t, out, "Billing")
	assert.Contains(t, out, "yes")
}

func TestAppsSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, t.TempDir(), srv.URL)

	_, err := runCLI(t, "--config", cfgPath, "apps", "search", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 characters")

	_, err = runCLI(t, "--config", cfgPath, "products", "search", "pay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Search failed. Please try again.")
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://localhost:1")

	out, err := runCLI(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No onboardings recorded yet.")

	st, err := store.NewLocalStore(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	for i, name := range []string{"Billing", "Ledger"} {
		app := catalog.App{ID: fmt.Sprintf("app-%d", i), Name: name}
		assoc := catalog.Association{ID: fmt.Sprintf("as-%d", i), ProductName: "Payments", Repos: []catalog.Repo{{ID: "r"}}}
		require.NoError(t, st.RecordAssociation(context.Background(), "s", app, assoc))
	}
	require.NoError(t, st.Close())

	out, err = runCLI(t, "--config", cfgPath, "history", "--page-size", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Onboarding history (2)")
	assert.Contains(t, out, "Ledger", "newest first")
	assert.NotContains(t, out, "Billing")

	out, err = runCLI(t, "--config", cfgPath, "history", "--app", "app-0")
	require.NoError(t, err)
	assert.Contains(t, out, "Billing")
	assert.NotContains(t, out, "Ledger")
}

func TestHistoryShow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://localhost:1")

	st, err := store.NewLocalStore(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	assoc := catalog.Association{
		ID:            "as-1",
		ProductID:     "prod-1",
		ProductName:   "Payments",
		Repos:         []catalog.Repo{{ID: "r1", Name: "billing-api", Source: catalog.RepoSourceGitLab}},
		JiraProjects:  []catalog.JiraProject{{Key: "BILL", Name: "Billing"}},
		Documentation: []catalog.DocEntry{{Type: catalog.DocTestStrategy, URL: "https://wiki.example.com/ts"}},
	}
	require.NoError(t, st.RecordAssociation(context.Background(), "sess-1", catalog.App{ID: "app-1", Name: "Billing"}, assoc))
	require.NoError(t, st.Close())

	out, err := runCLI(t, "--config", cfgPath, "history", "show", "as-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Onboarding as-1")
	assert.Contains(t, out, "Payments (prod-1)")
	assert.Contains(t, out, "billing-api [gitlab]")
	assert.Contains(t, out, "BILL Billing")
	assert.Contains(t, out, "https://wiki.example.com/ts")

	_, err = runCLI(t, "--config", cfgPath, "history", "show", "as-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no onboarding recorded for association "as-404"`)
}

func TestParseFilters(t *testing.T) {
	q, err := parseFilters([]string{"appId=app-1", " status = active "})
	require.NoError(t, err)
	assert.Equal(t, "app-1", q.Get("appId"))
	assert.Equal(t, "active", q.Get("status"))

	_, err = parseFilters([]string{"novalue"})
	assert.Error(t, err)

	q, err = parseFilters(nil)
	assert.NoError(t, err)
	assert.Nil(t, q)
}

func TestPrintOutcome(t *testing.T) {
	cases := []struct {
		name    string
		outcome *wizard.Submission
		want    string
	}{
		{"cancelled", nil, "Onboarding cancelled."},
		{"succeeded", &wizard.Submission{Succeeded: true, Association: &catalog.Association{ID: "as-9"}}, "association as-9"},
		{"failed", &wizard.Submission{Error: "backend down"}, "Onboarding failed: backend down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)
			printOutcome(cmd, tc.outcome)
			assert.True(t, strings.Contains(out.String(), tc.want), out.String())
		})
	}
}
