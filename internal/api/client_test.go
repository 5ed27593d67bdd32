package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"appcatalog/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts := Options{BaseURL: srv.URL, Token: "tok", RetryDelay: time.Millisecond}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "not a url"})
	assert.Error(t, err)

	c, err := New(Options{BaseURL: "https://catalog.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.example.com/", c.BaseURL())
	assert.NotNil(t, c.httpClient.Jar, "default client keeps session cookies")
}

func TestClient_HeadersAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cmdb/applications/search", r.URL.Path)
		assert.Equal(t, "bill ing", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, []catalog.App{{ID: "a1", Name: "Billing"}})
	})

	apps, err := c.SearchApplications(context.Background(), "bill ing")
	require.NoError(t, err)
	assert.Equal(t, []catalog.App{{ID: "a1", Name: "Billing"}}, apps)
}

func TestClient_BasePathPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog/api/products/search", r.URL.Path)
		writeJSON(w, http.StatusOK, []catalog.Product{})
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/catalog/"})
	require.NoError(t, err)

	products, err := c.SearchProducts(context.Background(), "pay")
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NotNil(t, products)
}

func TestClient_ListEnvelopes(t *testing.T) {
	bodies := []string{
		`[{"key":"PAY","name":"Payments"}]`,
		`{"data":[{"key":"PAY","name":"Payments"}]}`,
		`{"items":[{"key":"PAY","name":"Payments"}]}`,
	}
	for _, body := range bodies {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		projects, err := c.SearchJiraProjects(context.Background(), "pay")
		require.NoError(t, err, body)
		assert.Equal(t, []catalog.JiraProject{{Key: "PAY", Name: "Payments"}}, projects, body)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusBadRequest, `{"message":"product is archived"}`, "product is archived"},
		{"error field", http.StatusConflict, `{"error":"already onboarded"}`, "already onboarded"},
		{"plain text", http.StatusInternalServerError, "boom\n", "boom"},
		{"empty body", http.StatusForbidden, "", "Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetServiceInstances(context.Background(), "a1")
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, IsStatus(err, tt.status))
		})
	}
}

func TestErrorMessage_TruncatesOnRuneBoundary(t *testing.T) {
	// 511 ASCII bytes put the 512 byte cut inside the two byte rune.
	body := strings.Repeat("a", 511) + strings.Repeat("é", 10)
	msg := errorMessage(http.StatusBadGateway, []byte(body))

	assert.True(t, utf8.ValidString(msg), "message must stay valid UTF-8")
	assert.True(t, strings.HasSuffix(msg, "...(truncated)"))
	assert.Equal(t, strings.Repeat("a", 511)+"...(truncated)", msg)

	short := strings.Repeat("é", 100)
	assert.Equal(t, short, errorMessage(http.StatusBadGateway, []byte(short)))
}

func TestClient_RetriesIdempotentGets(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, []catalog.Repo{{ID: "r1"}})
	}, func(o *Options) { o.MaxRetries = 2 })

	repos, err := c.SearchRepos(context.Background(), "svc")
	require.NoError(t, err)
	assert.Len(t, repos, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_RetryBudgetExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, func(o *Options) { o.MaxRetries = 1 })

	_, err := c.SearchRepos(context.Background(), "svc")
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_NoRetryForPost(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(o *Options) { o.MaxRetries = 3 })

	_, err := c.CompleteOnboarding(context.Background(), nil, catalog.OnboardingRequest{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_AvailableReposTagSource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/applications/a%2F1/repos/available", "/api/applications/a/1/repos/available":
			writeJSON(w, http.StatusOK, []catalog.Repo{{ID: "g1"}})
		case "/api/applications/a%2F1/bitbucket/repos/available", "/api/applications/a/1/bitbucket/repos/available":
			writeJSON(w, http.StatusOK, []catalog.Repo{{ID: "b1"}, {ID: "b2", Source: "custom"}})
		default:
			t.Errorf("unexpected path %s (raw %s)", r.URL.Path, r.URL.RawPath)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	gitlab, err := c.GetAvailableRepos(context.Background(), "a/1")
	require.NoError(t, err)
	assert.Equal(t, catalog.RepoSourceGitLab, gitlab[0].Source)

	bb, err := c.GetAvailableBitbucketRepos(context.Background(), "a/1")
	require.NoError(t, err)
	assert.Equal(t, catalog.RepoSourceBitbucket, bb[0].Source)
	assert.Equal(t, catalog.RepoSource("custom"), bb[1].Source)
}

func TestClient_CompleteOnboarding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/onboarding/complete", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body["productId"])
		assert.Equal(t, "Payments", body["productName"])
		assert.Len(t, body["apps"], 1)
		assert.Len(t, body["documentation"], 1)

		writeJSON(w, http.StatusCreated, catalog.Association{ID: "as1", ProductID: "p1", AppIDs: []string{"a1"}})
	})

	assoc, err := c.CompleteOnboarding(context.Background(),
		[]catalog.App{{ID: "a1"}},
		catalog.OnboardingRequest{
			ProductID:     "p1",
			ProductName:   "Payments",
			Documentation: []catalog.DocEntry{{Type: catalog.DocTestStrategy, URL: "https://wiki/test"}},
		})
	require.NoError(t, err)
	assert.Equal(t, "as1", assoc.ID)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SearchProducts(ctx, "pay")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
