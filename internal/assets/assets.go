// Package assets downloads remote images (the school logo) and normalizes
// them into PNG bytes the PDF surface can embed.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"challan-backend/internal/apperr"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 5 << 20
	DefaultMaxPixels = 600
)

// Options configures a Fetcher. Zero values fall back to the defaults.
type Options struct {
	Client    *http.Client
	Timeout   time.Duration
	TempDir   string
	MaxBytes  int64
	MaxPixels int
}

// Fetcher retrieves images over HTTP
type Fetcher struct {
	client    *http.Client
	tempDir   string
	maxBytes  int64
	maxPixels int
}

func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	return &Fetcher{
		client:    client,
		tempDir:   opts.TempDir,
		maxBytes:  opts.MaxBytes,
		maxPixels: opts.MaxPixels,
	}
}

// Fetch downloads rawURL and returns the image re-encoded as PNG.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "assets.fetch"

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, apperr.New(apperr.LayoutData, op, "school logo url is missing")
	}
	target := RewriteURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.AssetFetch, op, err)
	}
	req.Header.Set("Accept", "image/png,image/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.AssetFetch, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Wrap(apperr.AssetFetch, op, fmt.Errorf("GET %s: status %d", target, resp.StatusCode))
	}

	raw, err := f.spool(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.AssetFetch, op, err)
	}

	out, err := f.normalize(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.AssetFetch, op, err)
	}
	log.Printf("[Assets] fetched %s (%d bytes -> %d bytes png)", target, len(raw), len(out))
	return out, nil
}

// spool writes the body through a transient file and reads it back. The file
// is removed before returning.
func (f *Fetcher) spool(body io.Reader) ([]byte, error) {
	tmp, err := os.CreateTemp(f.tempDir, "challan-asset-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	defer func() {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[Assets] failed to remove temp file %s: %v", name, err)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(body, f.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if n > f.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}
	if n == 0 {
		return nil, errors.New("empty response body")
	}

	return os.ReadFile(name)
}

func (f *Fetcher) normalize(raw []byte) ([]byte, error) {
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > f.maxPixels || b.Dy() > f.maxPixels {
		img = imaging.Fit(img, f.maxPixels, f.maxPixels, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (image.Image, error) {
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)

	if strings.Contains(ct, "webp") {
		img, err := webp.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ct, err)
	}
	return img, nil
}

// RewriteURL asks image CDNs that can transcode on the fly for PNG.
func RewriteURL(rawURL string) string {
	const marker = "/image/upload/"

	if !strings.Contains(rawURL, "res.cloudinary.com") {
		return rawURL
	}
	i := strings.Index(rawURL, marker)
	if i < 0 {
		return rawURL
	}
	rest := rawURL[i+len(marker):]
	if strings.HasPrefix(rest, "f_png/") || strings.HasPrefix(rest, "f_png,") {
		return rawURL
	}
	return rawURL[:i+len(marker)] + "f_png/" + rest
}

// Aspect returns width/height of an encoded image, or 0 when it cannot be read.
func Aspect(data []byte) float64 {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Height == 0 {
		return 0
	}
	return float64(cfg.Width) / float64(cfg.Height)
}
