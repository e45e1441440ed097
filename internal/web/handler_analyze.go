package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/service"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidImage     = "Missing or invalid image data"
	msgUnparsable       = "Failed to parse JSON response"
	msgUnexpected       = "Unexpected server error"
)

// errorResponse is the body of every non-2xx response. Detail is a pointer so
// an empty model reply is still reported as "detail":"".
type errorResponse struct {
	Error  string  `json:"error"`
	Detail *string `json:"detail,omitempty"`
}

type analyzeResponse struct {
	Data *domain.AnalysisResult `json:"data"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, nil)
		return
	}

	if !s.gateway.Configured() {
		writeError(w, http.StatusInternalServerError, "Missing "+s.gateway.CredentialName(), nil)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer closeWithLog(body, "request body", s.logger)

	req, err := decodeAnalyzeRequest(body)
	if err != nil {
		s.logger.Warn("analyze request rejected", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidImage, nil)
		return
	}

	result, err := s.gateway.Analyze(r.Context(), req)
	if err != nil {
		s.writeAnalyzeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{Data: result})
}

func (s *Server) writeAnalyzeError(w http.ResponseWriter, err error) {
	var gwErr *service.Error
	if !errors.As(err, &gwErr) {
		writeError(w, http.StatusInternalServerError, msgUnexpected, errorDetail(err))
		return
	}

	switch gwErr.Kind {
	case service.KindCredentialMissing:
		writeError(w, http.StatusInternalServerError, "Missing "+s.gateway.CredentialName(), nil)
	case service.KindInvalidPayload:
		writeError(w, http.StatusBadRequest, msgInvalidImage, nil)
	case service.KindUnparsableOutput:
		writeError(w, http.StatusInternalServerError, msgUnparsable, &gwErr.Detail)
	default:
		// Provider failures share the generic response; the gateway logs the kind.
		writeError(w, http.StatusInternalServerError, msgUnexpected, &gwErr.Detail)
	}
}

// decodeAnalyzeRequest accepts the request object either directly or wrapped
// in a JSON string, as some clients send a stringified body. An empty body
// yields a zero request, which the gateway rejects as missing image data.
func decodeAnalyzeRequest(r io.Reader) (service.AnalyzeRequest, error) {
	var req service.AnalyzeRequest

	data, err := io.ReadAll(r)
	if err != nil {
		return req, fmt.Errorf("failed to read body: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return req, nil
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return req, fmt.Errorf("failed to decode string body: %w", err)
		}
		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 {
			return req, nil
		}
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to decode body: %w", err)
	}
	return req, nil
}

func writeError(w http.ResponseWriter, status int, msg string, detail *string) {
	writeJSON(w, status, errorResponse{Error: msg, Detail: detail})
}

func errorDetail(v any) *string {
	var s string
	if err, ok := v.(error); ok {
		s = err.Error()
	} else {
		s = fmt.Sprint(v)
	}
	return &s
}
