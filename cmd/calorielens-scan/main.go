// Command calorielens-scan sends a food photo to a calorielens server and
// prints the foods it found, lowest calories first.
//
//	calorielens-scan [-server URL] [-capture] [-max-dim N] [-text] [-mime TYPE] [-lang TAG] [-v] photo.jpg|-
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/vbonduro/calorielens/internal/client"
	"github.com/vbonduro/calorielens/internal/domain"
	"github.com/vbonduro/calorielens/internal/imagepayload"
	"github.com/vbonduro/calorielens/internal/locale"
	"github.com/vbonduro/calorielens/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calorielens-scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", "http://localhost:8080", "calorielens server base URL")
	capture := fs.Bool("capture", false, "treat the file as a camera frame and re-encode it as JPEG")
	maxDim := fs.Int("max-dim", 0, "with -capture, bound the longest edge to this many pixels")
	text := fs.Bool("text", false, "the input holds a data URL or base64 text rather than image bytes")
	mimeType := fs.String("mime", "", "override the detected image MIME type")
	lang := fs.String("lang", "", "language for messages shown before a result is available")
	verbose := fs.Bool("v", false, "log request details and print error details")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: calorielens-scan [flags] <image|->")
		return 2
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.NewText(stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fail := func(err error) int {
		fmt.Fprintln(stderr, locale.For(*lang).ErrorMessage)
		logger.Debug("scan failed", "error", err)
		if *verbose {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Detail != "" {
				fmt.Fprintln(stderr, apiErr.Detail)
			} else {
				fmt.Fprintln(stderr, err)
			}
		}
		return 1
	}

	img, err := loadImage(fs.Arg(0), stdin, inputOptions{
		capture:  *capture,
		text:     *text,
		maxDim:   *maxDim,
		mimeType: *mimeType,
	})
	if err != nil {
		return fail(err)
	}
	logger.Debug("image loaded", "mime_type", img.MimeType, "base64_bytes", len(img.Data))

	result, err := client.New(*server).Analyze(ctx, img)
	if err != nil {
		return fail(err)
	}

	if err := client.Render(stdout, result, locale.For(result.Language)); err != nil {
		logger.Error("failed to write result", "error", err)
		return 1
	}
	return 0
}

type inputOptions struct {
	capture  bool
	text     bool
	maxDim   int
	mimeType string
}

// loadImage reads path ("-" for stdin) into a payload. Text input goes
// through data-URL normalization; capture input is re-encoded; anything else
// is sent as-is.
func loadImage(path string, stdin io.Reader, opts inputOptions) (domain.ImagePayload, error) {
	if path != "-" && !opts.text && !opts.capture {
		img, err := imagepayload.FromFile(path)
		if err != nil {
			return domain.ImagePayload{}, err
		}
		if opts.mimeType != "" {
			img.MimeType = opts.mimeType
		}
		return img, nil
	}

	data, err := readInput(path, stdin)
	if err != nil {
		return domain.ImagePayload{}, err
	}

	switch {
	case opts.text:
		return imagepayload.FromText(string(data), opts.mimeType)
	case opts.capture:
		return imagepayload.FromCapture(bytes.NewReader(data), imagepayload.CaptureOptions{MaxDimension: opts.maxDim})
	default:
		mimeType := opts.mimeType
		if mimeType == "" {
			mimeType, _ = imagepayload.DetectMIME(data)
		}
		return imagepayload.FromReader(bytes.NewReader(data), mimeType)
	}
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			return nil, fmt.Errorf("%w: no standard input", imagepayload.ErrRead)
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", imagepayload.ErrRead, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imagepayload.ErrRead, err)
	}
	return data, nil
}
