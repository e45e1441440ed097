package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/photostore"
)

// diagnosticsReader is the read side of service.Diagnostics.
type diagnosticsReader interface {
	Recent(ctx context.Context, limit int) ([]*domain.Diagnostic, error)
	Lookup(ctx context.Context, requestID string) (*domain.Diagnostic, error)
	Photo(ctx context.Context, rec *domain.Diagnostic) (io.ReadCloser, string, error)
}

// rawPreviewLen bounds the raw model output shown per row in the listing.
const rawPreviewLen = 60

// listDiagnostics prints the newest limit records, one per line.
func listDiagnostics(ctx context.Context, diag diagnosticsReader, limit int, w io.Writer) error {
	records, err := diag.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list diagnostics: %w", err)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no diagnostics recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tREQUEST ID\tPROVIDER\tMIME\tPHOTO\tOUTPUT")
	for _, rec := range records {
		photo := "-"
		if rec.PhotoKey != "" {
			photo = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339), rec.RequestID, rec.Provider,
			rec.MimeType, photo, preview(rec.RawOutput))
	}
	return tw.Flush()
}

// showDiagnostic prints one record in full. When photoOut is set the stored
// image is copied there.
func showDiagnostic(ctx context.Context, diag diagnosticsReader, requestID, photoOut string, w io.Writer) error {
	rec, err := diag.Lookup(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to look up diagnostic %s: %w", requestID, err)
	}

	fmt.Fprintf(w, "request id: %s\n", rec.RequestID)
	fmt.Fprintf(w, "created:    %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "provider:   %s\n", rec.Provider)
	fmt.Fprintf(w, "mime type:  %s\n", rec.MimeType)
	fmt.Fprintf(w, "photo key:  %s\n", rec.PhotoKey)
	fmt.Fprintf(w, "output:\n%s\n", rec.RawOutput)

	if photoOut == "" {
		return nil
	}
	return savePhoto(ctx, diag, rec, photoOut, w)
}

func savePhoto(ctx context.Context, diag diagnosticsReader, rec *domain.Diagnostic, path string, w io.Writer) error {
	rc, mimeType, err := diag.Photo(ctx, rec)
	if errors.Is(err, photostore.ErrNotFound) {
		return fmt.Errorf("no photo stored for %s", rec.RequestID)
	}
	if err != nil {
		return fmt.Errorf("failed to open photo: %w", err)
	}
	defer func() { _ = rc.Close() }()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, err = fmt.Fprintf(w, "photo: %s (%s, %d bytes)\n", path, mimeType, n)
	return err
}

func preview(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if len([]rune(s)) > rawPreviewLen {
		return string([]rune(s)[:rawPreviewLen]) + "..."
	}
	return s
}
