package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/imagepayload"
	"github.com/vbonduro/calorielens/internal/vision"
)

// AnalyzeRequest mirrors the JSON body accepted by the analyze endpoint.
// ImageDataURL takes precedence over ImageBase64.
type AnalyzeRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
	ImageBase64  string `json:"imageBase64"`
	MimeType     string `json:"mimeType"`
}

// DiagnosticsRecorder keeps a copy of model replies that failed to parse.
type DiagnosticsRecorder interface {
	RecordUnparsable(ctx context.Context, requestID, provider string, img domain.ImagePayload, raw string) error
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithTimeout bounds each provider call. Zero leaves the call unbounded.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func WithDiagnostics(r DiagnosticsRecorder) Option {
	return func(g *Gateway) { g.diagnostics = r }
}

// Gateway turns an image payload into a sorted nutrition analysis with a
// single model call. It holds no per-request state and is safe for
// concurrent use.
type Gateway struct {
	analyzer       vision.Analyzer
	credentialName string
	timeout        time.Duration
	diagnostics    DiagnosticsRecorder
	logger         *slog.Logger
}

// NewGateway returns a gateway backed by analyzer. A nil analyzer means the
// provider credential named credentialName was not configured; every request
// then fails with KindCredentialMissing.
func NewGateway(analyzer vision.Analyzer, credentialName string, opts ...Option) *Gateway {
	g := &Gateway{
		analyzer:       analyzer,
		credentialName: credentialName,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) CredentialName() string {
	return g.credentialName
}

// Timeout is the bound on a single provider call; zero means none.
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

// Configured reports whether a provider is available. Callers may check it
// before reading a request body.
func (g *Gateway) Configured() bool {
	return g.analyzer != nil
}

// Resolve extracts the image payload from req.
func (g *Gateway) Resolve(req AnalyzeRequest) (domain.ImagePayload, error) {
	dataURL := req.ImageDataURL
	if dataURL == "" && req.ImageBase64 != "" {
		mimeType := req.MimeType
		if mimeType == "" {
			mimeType = domain.DefaultMIMEType
		}
		dataURL = fmt.Sprintf("data:%s;base64,%s", mimeType, req.ImageBase64)
	}

	img, err := imagepayload.ParseDataURL(dataURL)
	if err != nil {
		return domain.ImagePayload{}, &Error{Kind: KindInvalidPayload, Err: err}
	}
	if img.MimeType == "" {
		img.MimeType = domain.DefaultMIMEType
	}
	return img, nil
}

// Analyze validates req, calls the model once and parses its reply. Every
// failure is an *Error; a panic anywhere in the pipeline is reported as
// KindUnexpected.
func (g *Gateway) Analyze(ctx context.Context, req AnalyzeRequest) (result *domain.AnalysisResult, err error) {
	requestID, ok := RequestIDFrom(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	logger := g.logger.With("request_id", requestID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("analysis panicked", "panic", r, "stack", string(debug.Stack()))
			result = nil
			err = &Error{Kind: KindUnexpected, Detail: fmt.Sprint(r)}
		}
	}()

	if g.analyzer == nil {
		logger.Error("analysis rejected: provider credential not configured", "credential", g.credentialName)
		return nil, &Error{Kind: KindCredentialMissing}
	}

	img, err := g.Resolve(req)
	if err != nil {
		logger.Warn("analysis rejected: invalid image payload", "error", err)
		return nil, err
	}

	logger.Info("analysis started", "provider", g.analyzer.Name(), "mime_type", img.MimeType, "base64_bytes", len(img.Data))
	start := time.Now()

	raw, err := g.callProvider(ctx, img)
	if err != nil {
		logger.Error("provider call failed", "provider", g.analyzer.Name(), "error", err, "elapsed", time.Since(start))
		return nil, &Error{Kind: KindProviderFailure, Detail: err.Error(), Err: err}
	}

	parsed, err := vision.ParseResponse(raw)
	if err != nil {
		logger.Warn("model output could not be parsed", "provider", g.analyzer.Name(), "raw_len", len(raw), "error", err)
		g.recordUnparsable(ctx, logger, requestID, img, raw)

		var unparsable *vision.UnparsableError
		if errors.As(err, &unparsable) {
			return nil, &Error{Kind: KindUnparsableOutput, Detail: unparsable.Raw, Err: err}
		}
		return nil, &Error{Kind: KindUnparsableOutput, Detail: raw, Err: err}
	}

	logger.Info("analysis finished", "foods", len(parsed.Foods), "language", parsed.Language, "elapsed", time.Since(start))
	return parsed, nil
}

func (g *Gateway) callProvider(ctx context.Context, img domain.ImagePayload) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.analyzer.Analyze(ctx, img)
}

// recordUnparsable never fails the request; recorder errors are only logged.
func (g *Gateway) recordUnparsable(ctx context.Context, logger *slog.Logger, requestID string, img domain.ImagePayload, raw string) {
	if g.diagnostics == nil {
		return
	}
	// The client may already be gone; the record is still worth keeping.
	ctx = context.WithoutCancel(ctx)
	if err := g.diagnostics.RecordUnparsable(ctx, requestID, g.analyzer.Name(), img, raw); err != nil {
		logger.Error("failed to record diagnostic", "error", err)
	}
}
