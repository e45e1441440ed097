package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/calorielens/internal/domain"
)

// sqliteTime matches the format produced by datetime('now').
const sqliteTime = "2006-01-02 15:04:05"

type DiagnosticsStore struct {
	db *sql.DB
}

func NewDiagnosticsStore(db *sql.DB) *DiagnosticsStore {
	return &DiagnosticsStore{db: db}
}

func (s *DiagnosticsStore) Create(ctx context.Context, d *domain.Diagnostic) (*domain.Diagnostic, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnostics (request_id, provider, mime_type, raw_output, photo_key)
		VALUES (?, ?, ?, ?, ?)
	`, d.RequestID, d.Provider, d.MimeType, d.RawOutput, d.PhotoKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnostic: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *DiagnosticsStore) GetByID(ctx context.Context, id int64) (*domain.Diagnostic, error) {
	return s.getOne(ctx, `
		SELECT id, request_id, provider, mime_type, raw_output, photo_key, created_at
		FROM diagnostics WHERE id = ?
	`, id)
}

func (s *DiagnosticsStore) GetByRequestID(ctx context.Context, requestID string) (*domain.Diagnostic, error) {
	return s.getOne(ctx, `
		SELECT id, request_id, provider, mime_type, raw_output, photo_key, created_at
		FROM diagnostics WHERE request_id = ?
	`, requestID)
}

func (s *DiagnosticsStore) getOne(ctx context.Context, query string, arg any) (*domain.Diagnostic, error) {
	d := &domain.Diagnostic{}
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&d.ID, &d.RequestID, &d.Provider, &d.MimeType, &d.RawOutput, &d.PhotoKey, &d.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnostic: %w", err)
	}

	return d, nil
}

// ListRecent returns at most limit records, newest first.
func (s *DiagnosticsStore) ListRecent(ctx context.Context, limit int) ([]*domain.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, provider, mime_type, raw_output, photo_key, created_at
		FROM diagnostics ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer rows.Close()

	var diagnostics []*domain.Diagnostic
	for rows.Next() {
		d := &domain.Diagnostic{}
		if err := rows.Scan(&d.ID, &d.RequestID, &d.Provider, &d.MimeType, &d.RawOutput, &d.PhotoKey, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		diagnostics = append(diagnostics, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnostics: %w", err)
	}

	return diagnostics, nil
}

// PurgeBefore deletes records created before cutoff and returns their photo
// keys so the caller can remove the stored images.
func (s *DiagnosticsStore) PurgeBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	ts := cutoff.UTC().Format(sqliteTime)

	keys, err := s.expiredPhotoKeys(ctx, ts)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM diagnostics WHERE created_at < ?`, ts); err != nil {
		return nil, fmt.Errorf("failed to purge diagnostics: %w", err)
	}

	return keys, nil
}

func (s *DiagnosticsStore) expiredPhotoKeys(ctx context.Context, ts string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT photo_key FROM diagnostics WHERE created_at < ? AND photo_key != ''
	`, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired diagnostics: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan photo key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired diagnostics: %w", err)
	}
	return keys, nil
}
