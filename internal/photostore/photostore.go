// Package photostore keeps copies of images whose analysis could not be
// parsed, so operators can replay them against a prompt change.
package photostore

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
)

var ErrNotFound = errors.New("photo not found")

type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizePrefix reduces prefix to characters safe in both file names and
// object keys. An empty result becomes "photo".
func SanitizePrefix(prefix string) string {
	clean := strings.Trim(unsafeKeyChars.ReplaceAllString(prefix, "_"), "_")
	if clean == "" {
		return "photo"
	}
	return clean
}

func ExtensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func MimeTypeFor(key string) string {
	i := strings.LastIndex(key, ".")
	if i == -1 {
		return "image/jpeg"
	}
	switch strings.ToLower(key[i:]) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
