package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/photostore"
)

// ErrDiagnosticNotFound is returned by Lookup when no record has the request id.
var ErrDiagnosticNotFound = errors.New("diagnostic not found")

// diagnosticsRepository is the subset of store.DiagnosticsStore that
// Diagnostics requires.
type diagnosticsRepository interface {
	Create(ctx context.Context, d *domain.Diagnostic) (*domain.Diagnostic, error)
	GetByRequestID(ctx context.Context, requestID string) (*domain.Diagnostic, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Diagnostic, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Diagnostics persists unparsable model replies and, when photoStg is set,
// the image that produced them.
type Diagnostics struct {
	repo     diagnosticsRepository
	photoStg photostore.PhotoStore
	logger   *slog.Logger
}

func NewDiagnostics(repo diagnosticsRepository, photoStg photostore.PhotoStore, logger *slog.Logger) *Diagnostics {
	return &Diagnostics{repo: repo, photoStg: photoStg, logger: logger}
}

func (d *Diagnostics) RecordUnparsable(ctx context.Context, requestID, provider string, img domain.ImagePayload, raw string) error {
	record := &domain.Diagnostic{
		RequestID: requestID,
		Provider:  provider,
		MimeType:  img.MimeType,
		RawOutput: raw,
	}

	if d.photoStg != nil {
		key, err := d.savePhoto(ctx, requestID, img)
		if err != nil {
			// Keep the text record even without the image.
			d.logger.Error("failed to save diagnostic photo", "request_id", requestID, "error", err)
		}
		record.PhotoKey = key
	}

	saved, err := d.repo.Create(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to save diagnostic: %w", err)
	}
	d.logger.Info("diagnostic recorded", "request_id", requestID, "id", saved.ID, "photo_key", saved.PhotoKey)
	return nil
}

func (d *Diagnostics) savePhoto(ctx context.Context, requestID string, img domain.ImagePayload) (string, error) {
	data, err := img.Decode()
	if err != nil {
		return "", err
	}
	return d.photoStg.Save(ctx, "diag_"+requestID, img.MimeType, bytes.NewReader(data))
}

func (d *Diagnostics) Recent(ctx context.Context, limit int) ([]*domain.Diagnostic, error) {
	return d.repo.ListRecent(ctx, limit)
}

// Lookup finds the record for the request id echoed in X-Request-ID.
func (d *Diagnostics) Lookup(ctx context.Context, requestID string) (*domain.Diagnostic, error) {
	rec, err := d.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrDiagnosticNotFound
	}
	return rec, nil
}

// Photo opens the image stored with rec. It returns photostore.ErrNotFound
// when none was kept. The caller closes the reader.
func (d *Diagnostics) Photo(ctx context.Context, rec *domain.Diagnostic) (io.ReadCloser, string, error) {
	if d.photoStg == nil || rec.PhotoKey == "" {
		return nil, "", photostore.ErrNotFound
	}
	return d.photoStg.Get(ctx, rec.PhotoKey)
}

// Purge drops records older than maxAge along with their stored photos.
// Photos that are already gone are ignored.
func (d *Diagnostics) Purge(ctx context.Context, maxAge time.Duration) (int, error) {
	keys, err := d.repo.PurgeBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	if d.photoStg != nil {
		for _, key := range keys {
			if err := d.photoStg.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
				d.logger.Error("failed to delete diagnostic photo", "photo_key", key, "error", err)
			}
		}
	}
	return len(keys), nil
}

// RunRetention purges expired diagnostics every interval until ctx is done.
func (d *Diagnostics) RunRetention(ctx context.Context, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.Purge(ctx, maxAge)
			if err != nil {
				d.logger.Error("diagnostics purge failed", "error", err)
				continue
			}
			if n > 0 {
				d.logger.Info("diagnostics purged", "photos", n)
			}
		}
	}
}
