// Package imagepayload turns raw image sources (picked files, camera frames,
// data URLs) into domain.ImagePayload values.
package imagepayload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vbonduro/calorielens/internal/domain"
)

var (
	// ErrRead means the image source could not be read or was empty.
	ErrRead = errors.New("failed to read image")
	// ErrEncoding means the image could not be turned into a usable payload.
	ErrEncoding = errors.New("invalid image encoding")
)

var dataURLPattern = regexp.MustCompile(`^data:(.*?);base64,(.*)$`)

// FromReader reads the whole image and encodes it. declaredMIME may be empty,
// in which case the payload is labelled image/jpeg.
func FromReader(r io.Reader, declaredMIME string) (domain.ImagePayload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if len(data) == 0 {
		return domain.ImagePayload{}, fmt.Errorf("%w: empty image", ErrRead)
	}
	return fromBytes(data, declaredMIME)
}

// FromFile reads an image from disk. The MIME type comes from the file
// extension, falling back to content sniffing when the extension is unknown.
func FromFile(path string) (domain.ImagePayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if len(data) == 0 {
		return domain.ImagePayload{}, fmt.Errorf("%w: empty image", ErrRead)
	}

	mimeType := mimeFromExt(path)
	if mimeType == "" {
		mimeType, _ = DetectMIME(data)
	}
	return fromBytes(data, mimeType)
}

func fromBytes(data []byte, mimeType string) (domain.ImagePayload, error) {
	if mimeType == "" {
		mimeType = domain.DefaultMIMEType
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if encoded == "" {
		return domain.ImagePayload{}, fmt.Errorf("%w: empty payload", ErrEncoding)
	}
	return domain.ImagePayload{MimeType: mimeType, Data: encoded}, nil
}

func mimeFromExt(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if t == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return ""
	}
	return mediaType
}

// ParseDataURL splits a data:<mime>;base64,<data> URL. An empty MIME segment
// is returned as-is; callers decide the default.
func ParseDataURL(s string) (domain.ImagePayload, error) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: not a base64 data URL", ErrEncoding)
	}
	if m[2] == "" {
		return domain.ImagePayload{}, fmt.Errorf("%w: empty payload", ErrEncoding)
	}
	return domain.ImagePayload{MimeType: m[1], Data: m[2]}, nil
}

// Normalize coerces raw into a data URL. Data URLs pass through, except that
// one with an empty MIME segment gets mimeType. Anything else is treated as
// bare base64 (or "prefix,base64") and wrapped.
func Normalize(raw, mimeType string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "data:") {
		if strings.HasPrefix(raw, "data:;base64,") && mimeType != "" {
			return "data:" + mimeType + ";base64," + afterComma(raw)
		}
		return raw
	}
	if mimeType == "" {
		mimeType = domain.DefaultMIMEType
	}
	b64 := raw
	if strings.Contains(raw, ",") {
		b64 = afterComma(raw)
	}
	return "data:" + mimeType + ";base64," + b64
}

// FromText builds a payload from text input: a data URL, or bare base64
// labelled with mimeType. The base64 must decode.
func FromText(text, mimeType string) (domain.ImagePayload, error) {
	dataURL := Normalize(strings.TrimSpace(text), mimeType)
	if dataURL == "" {
		return domain.ImagePayload{}, fmt.Errorf("%w: empty image", ErrRead)
	}
	if _, err := base64.StdEncoding.DecodeString(ExtractBase64(dataURL)); err != nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	p, err := ParseDataURL(dataURL)
	if err != nil {
		return domain.ImagePayload{}, err
	}
	if p.MimeType == "" {
		p.MimeType = domain.DefaultMIMEType
	}
	return p, nil
}

// ExtractBase64 returns the payload segment of a data URL, or s unchanged
// when it has no comma.
func ExtractBase64(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

func afterComma(s string) string {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// DetectMIME sniffs the image format from magic bytes. Only JPEG, PNG, GIF
// and WebP are recognised.
func DetectMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg", true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png", true
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "image/gif", true
	}
	return "", false
}

// isWebP reports whether data is a RIFF container with "WEBP" at offset 8.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}
