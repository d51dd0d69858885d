// Package imaging validates uploaded item photos and normalizes them to
// bounded-size JPEGs before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"

	// Decoders for accepted upload formats.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Upload limits.
const (
	MaxUploadBytes = 5 << 20
	MaxDimension   = 1024
	JPEGQuality    = 85
)

// Upload errors. Both fail the whole request.
var (
	ErrTooLarge    = fmt.Errorf("image exceeds %d MB", MaxUploadBytes>>20)
	ErrUnsupported = errors.New("only image uploads are allowed (JPEG, PNG, GIF or WebP)")
)

var sniffed = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Photo is a processed upload.
type Photo struct {
	Data []byte
	MIME string
}

// Process validates an upload and re-encodes it as a JPEG no larger than
// MaxDimension on either side. declared is the client's Content-Type for the
// part; it must start with "image/", and the sniffed bytes must agree.
func Process(r io.Reader, declared string) (*Photo, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(declared)), "image/") {
		return nil, ErrUnsupported
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	if !sniffed[http.DetectContentType(data)] {
		return nil, ErrUnsupported
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(img, MaxDimension), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// fit scales img down so neither side exceeds max, keeping the aspect ratio.
func fit(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	nw, nh := max, h*max/w
	if h > w {
		nw, nh = w*max/h, max
	}
	nw, nh = atLeastOne(nw), atLeastOne(nh)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
