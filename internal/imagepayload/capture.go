package imagepayload

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/calorielens/internal/domain"
)

// CaptureQuality is the JPEG quality used for camera frames. Fixed so the
// transmitted size stays bounded.
const CaptureQuality = 90

type CaptureOptions struct {
	// MaxDimension bounds the longest edge in pixels. Zero keeps the frame size.
	MaxDimension int
}

// FromCapture re-encodes a still camera frame as JPEG at CaptureQuality.
// EXIF orientation is applied so the model sees the picture upright.
func FromCapture(r io.Reader, opts CaptureOptions) (domain.ImagePayload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if len(data) == 0 {
		return domain.ImagePayload{}, fmt.Errorf("%w: empty frame", ErrRead)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	img = applyOrientation(img, orientation(data))
	if opts.MaxDimension > 0 {
		img = bound(img, opts.MaxDimension)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: CaptureQuality}); err != nil {
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	return domain.ImagePayload{
		MimeType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// orientation returns the EXIF orientation tag, or 1 when there is none.
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// applyOrientation rotates or flips img according to an EXIF orientation
// value (1-8).
func applyOrientation(img image.Image, o int) image.Image {
	if o < 2 || o > 8 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	if o >= 5 {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch o {
			case 2:
				dst.Set(w-1-x, y, c)
			case 3:
				dst.Set(w-1-x, h-1-y, c)
			case 4:
				dst.Set(x, h-1-y, c)
			case 5:
				dst.Set(y, x, c)
			case 6:
				dst.Set(h-1-y, x, c)
			case 7:
				dst.Set(h-1-y, w-1-x, c)
			case 8:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

// bound scales img down so neither edge exceeds maxDim.
func bound(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	nw, nh := maxDim, maxDim
	if w >= h {
		nh = h * maxDim / w
	} else {
		nw = w * maxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
