package photostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePrefix(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "diag_0b5c", expected: "diag_0b5c"},
		{in: "6f1c6a2e-8f7a-4d1e-9d5b-3c2a1b0e9f8d", expected: "6f1c6a2e-8f7a-4d1e-9d5b-3c2a1b0e9f8d"},
		{in: "../../etc/passwd", expected: "etc_passwd"},
		{in: "a b/c", expected: "a_b_c"},
		{in: "", expected: "photo"},
		{in: "///", expected: "photo"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizePrefix(tt.in))
		})
	}
}

func TestExtensionRoundTrip(t *testing.T) {
	for _, mime := range []string{"image/png", "image/gif", "image/webp", "image/jpeg"} {
		assert.Equal(t, mime, MimeTypeFor("key"+ExtensionFor(mime)), mime)
	}
	assert.Equal(t, ".jpg", ExtensionFor("image/heic"))
	assert.Equal(t, "image/jpeg", MimeTypeFor("noext"))
	assert.Equal(t, "image/png", MimeTypeFor("UPPER.PNG"))
}
