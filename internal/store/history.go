package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"appcatalog/internal/catalog"
	"appcatalog/internal/logging"

	"github.com/google/uuid"
)

// =============================================================================
// ONBOARDING HISTORY
// =============================================================================

// HistoryEntry is one completed onboarding.
type HistoryEntry struct {
	ID          int64
	SessionID   string
	AppID       string
	AppName     string
	ProductID   string
	ProductName string
	RepoCount   int
	JiraCount   int
	DocCount    int
	CreatedAt   time.Time
	Association catalog.Association
}

// RecordAssociation stores a completed onboarding. Recording the same
// association id twice keeps the first entry.
func (s *LocalStore) RecordAssociation(ctx context.Context, sessionID string, app catalog.App, assoc catalog.Association) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if assoc.ID == "" {
		assoc.ID = uuid.NewString()
	}
	created := assoc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	payload, err := json.Marshal(assoc)
	if err != nil {
		return fmt.Errorf("failed to marshal association: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO onboarding_history
		 (association_id, session_id, app_id, app_name, product_id, product_name, payload, created_at, repo_count, jira_count, doc_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assoc.ID, sessionID, app.ID, app.Name, assoc.ProductID, assoc.ProductName, string(payload),
		created.UTC().Format(time.RFC3339Nano),
		len(assoc.Repos), len(assoc.JiraProjects), len(assoc.Documentation),
	)
	if err != nil {
		logging.StoreError("Failed to record association %s: %v", assoc.ID, err)
		return fmt.Errorf("failed to record association: %w", err)
	}

	logging.StoreDebug("Recorded association %s (app=%s product=%s)", assoc.ID, app.ID, assoc.ProductID)
	return nil
}

const historyColumns = `id, session_id, app_id, app_name, product_id, product_name, repo_count, jira_count, doc_count, created_at, payload`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (HistoryEntry, error) {
	var (
		e       HistoryEntry
		created string
		payload string
	)
	if err := row.Scan(&e.ID, &e.SessionID, &e.AppID, &e.AppName, &e.ProductID, &e.ProductName,
		&e.RepoCount, &e.JiraCount, &e.DocCount, &created, &payload); err != nil {
		return e, err
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = t
	}
	if err := json.Unmarshal([]byte(payload), &e.Association); err != nil {
		return e, fmt.Errorf("failed to decode association payload: %w", err)
	}
	return e, nil
}

// ListAssociations returns entries newest first. limit <= 0 means 100.
func (s *LocalStore) ListAssociations(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListAssociations")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM onboarding_history ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListByApp returns the entries for one application, newest first.
func (s *LocalStore) ListByApp(ctx context.Context, appID string) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM onboarding_history WHERE app_id = ? ORDER BY id DESC`, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetAssociation returns the entry recorded for an association id.
func (s *LocalStore) GetAssociation(ctx context.Context, associationID string) (HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM onboarding_history WHERE association_id = ?`, associationID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return HistoryEntry{}, fmt.Errorf("association %s: %w", associationID, ErrNotFound)
	}
	return e, err
}

// CountAssociations returns the number of recorded onboardings.
func (s *LocalStore) CountAssociations(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM onboarding_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}
