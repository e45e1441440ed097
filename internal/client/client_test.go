package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/calorielens/internal/domain"
)

var lunch = domain.ImagePayload{MimeType: "image/png", Data: "Zm9vZA=="}

func TestClientAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req analyzeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "data:image/png;base64,Zm9vZA==", req.ImageDataURL)
		assert.Equal(t, "Zm9vZA==", req.ImageBase64)
		assert.Equal(t, "image/png", req.MimeType)

		// Deliberately unsorted: the client must not trust the order.
		_, _ = w.Write([]byte(`{"data":{"language":"en","foods":[{"name":"Banana","calories":105},{"name":"Apple","calories":95}],"recommendation":"Apple"}}`))
	}))
	defer server.Close()

	result, err := New(server.URL+"/").Analyze(context.Background(), lunch)
	require.NoError(t, err)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Foods, 2)
	assert.Equal(t, "Apple", result.Foods[0].Name)
	assert.Equal(t, "Banana", result.Foods[1].Name)
}

func TestClientAnalyzeDefaultsMIME(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image/jpeg", req.MimeType)
		assert.Equal(t, "data:image/jpeg;base64,AA==", req.ImageDataURL)
		_, _ = w.Write([]byte(`{"data":{"language":"zh","foods":null,"recommendation":""}}`))
	}))
	defer server.Close()

	result, err := New(server.URL).Analyze(context.Background(), domain.ImagePayload{Data: "AA=="})
	require.NoError(t, err)
	assert.NotNil(t, result.Foods)
	assert.Empty(t, result.Foods)
}

func TestClientAnalyzeAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected APIError
	}{
		{
			name:     "json error with detail",
			status:   http.StatusInternalServerError,
			body:     `{"error":"Failed to parse JSON response","detail":"no food"}`,
			expected: APIError{Status: 500, Message: "Failed to parse JSON response", Detail: "no food"},
		},
		{
			name:     "json error",
			status:   http.StatusBadRequest,
			body:     `{"error":"Missing or invalid image data"}`,
			expected: APIError{Status: 400, Message: "Missing or invalid image data"},
		},
		{
			name:     "plain text",
			status:   http.StatusBadGateway,
			body:     "bad gateway\n",
			expected: APIError{Status: 502, Message: "bad gateway"},
		},
		{
			name:     "empty body",
			status:   http.StatusServiceUnavailable,
			expected: APIError{Status: 503, Message: "Service Unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL).Analyze(context.Background(), lunch)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.expected, *apiErr)
		})
	}
}

func TestClientAnalyzeBadSuccessBody(t *testing.T) {
	for _, body := range []string{"not json", `{"foods":[]}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := New(server.URL).Analyze(context.Background(), lunch)
		assert.Error(t, err, body)
		server.Close()
	}
}

func TestClientAnalyzeNetworkError(t *testing.T) {
	_, err := New("http://localhost:99999").Analyze(context.Background(), lunch)
	assert.Error(t, err)
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "server returned 400: bad", (&APIError{Status: 400, Message: "bad"}).Error())
	assert.Equal(t, "server returned 500: bad: why", (&APIError{Status: 500, Message: "bad", Detail: "why"}).Error())
}
