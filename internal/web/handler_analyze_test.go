package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/service"
)

type fixedAnalyzer struct {
	text string
	err  error
}

func (f fixedAnalyzer) Analyze(context.Context, domain.ImagePayload) (string, error) {
	return f.text, f.err
}

func (f fixedAnalyzer) Name() string { return "fixed" }

func newHandlerTestServer(a *fixedAnalyzer, maxBody int64) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gw *service.Gateway
	if a == nil {
		gw = service.NewGateway(nil, "GEMINI_API_KEY", service.WithLogger(logger))
	} else {
		gw = service.NewGateway(*a, "GEMINI_API_KEY", service.WithLogger(logger))
	}
	return NewServer(gw, maxBody, logger)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDecodeAnalyzeRequest(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected service.AnalyzeRequest
		wantErr  bool
	}{
		{name: "empty", body: "", expected: service.AnalyzeRequest{}},
		{name: "object", body: `{"imageDataUrl":"data:image/png;base64,AA"}`, expected: service.AnalyzeRequest{ImageDataURL: "data:image/png;base64,AA"}},
		{name: "base64 fields", body: `{"imageBase64":"AA","mimeType":"image/gif"}`, expected: service.AnalyzeRequest{ImageBase64: "AA", MimeType: "image/gif"}},
		{name: "stringified", body: `"{\"imageBase64\":\"AA\"}"`, expected: service.AnalyzeRequest{ImageBase64: "AA"}},
		{name: "empty string", body: `""`, expected: service.AnalyzeRequest{}},
		{name: "null", body: `null`, expected: service.AnalyzeRequest{}},
		{name: "unknown fields ignored", body: `{"foo":1}`, expected: service.AnalyzeRequest{}},
		{name: "malformed", body: `{"imageBase64":`, wantErr: true},
		{name: "wrong type", body: `{"imageBase64":42}`, wantErr: true},
		{name: "array", body: `[1,2]`, wantErr: true},
		{name: "string not json", body: `"hello"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := decodeAnalyzeRequest(strings.NewReader(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req)
		})
	}
}

func TestHandleAnalyzeMethodNotAllowed(t *testing.T) {
	srv := newHandlerTestServer(&fixedAnalyzer{}, 0)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(method, "/api/analyze", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "POST", rec.Header().Get("Allow"))
		assert.Equal(t, map[string]any{"error": "Method not allowed"}, decodeError(t, rec))
	}
}

func TestHandleAnalyzeOversizeBody(t *testing.T) {
	srv := newHandlerTestServer(&fixedAnalyzer{text: "{}"}, 64)

	body := `{"imageBase64":"` + strings.Repeat("A", 200) + `"}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"error": "Missing or invalid image data"}, decodeError(t, rec))
}

func TestHandleAnalyzeProviderFailure(t *testing.T) {
	srv := newHandlerTestServer(&fixedAnalyzer{err: errors.New("claude returned status 529")}, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"imageBase64":"AA"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{
		"error":  "Unexpected server error",
		"detail": "claude returned status 529",
	}, decodeError(t, rec))
}

func TestHandleAnalyzeEmptyModelReply(t *testing.T) {
	srv := newHandlerTestServer(&fixedAnalyzer{text: ""}, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"imageBase64":"AA"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Failed to parse JSON response", "detail": ""}, decodeError(t, rec))
}

func TestWriteAnalyzeErrorUnknownError(t *testing.T) {
	srv := newHandlerTestServer(&fixedAnalyzer{}, 0)

	rec := httptest.NewRecorder()
	srv.writeAnalyzeError(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Unexpected server error", "detail": "boom"}, decodeError(t, rec))
}

func TestWriteAnalyzeErrorKinds(t *testing.T) {
	srv := newHandlerTestServer(&fixedAnalyzer{}, 0)

	tests := []struct {
		err        *service.Error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			err:        &service.Error{Kind: service.KindCredentialMissing},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "Missing GEMINI_API_KEY"},
		},
		{
			err:        &service.Error{Kind: service.KindInvalidPayload},
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "Missing or invalid image data"},
		},
		{
			err:        &service.Error{Kind: service.KindProviderFailure, Detail: "gemini returned status 503"},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "Unexpected server error", "detail": "gemini returned status 503"},
		},
		{
			err:        &service.Error{Kind: service.KindUnexpected, Detail: "nil map"},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"error": "Unexpected server error", "detail": "nil map"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.err.Kind.String(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.writeAnalyzeError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, decodeError(t, rec))
		})
	}
}

func TestRecovererWritesJSON(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := recoverer(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Unexpected server error", "detail": "handler exploded"}, decodeError(t, rec))
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newHandlerTestServer(&fixedAnalyzer{}, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
	assert.Equal(t, map[string]any{"status": "ok"}, decodeError(t, rec))
}

func TestHTTPServerWriteTimeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name            string
		providerTimeout time.Duration
		want            time.Duration
	}{
		{name: "bounded", providerTimeout: 60 * time.Second, want: 90 * time.Second},
		{name: "longer than default", providerTimeout: 10 * time.Minute, want: 10*time.Minute + 30*time.Second},
		{name: "unbounded", providerTimeout: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := service.NewGateway(fixedAnalyzer{}, "GEMINI_API_KEY",
				service.WithLogger(logger), service.WithTimeout(tt.providerTimeout))
			hs := NewServer(gw, 0, logger).HTTPServer(":0")
			assert.Equal(t, tt.want, hs.WriteTimeout)
			assert.Equal(t, ":0", hs.Addr)
		})
	}
}
