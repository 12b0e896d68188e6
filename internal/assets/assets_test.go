package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"challan-backend/internal/apperr"

	"github.com/chai2010/webp"
)

func sample(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	return img
}

func encoded(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Lossless: true})
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func serve(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchNormalizesToPNG(t *testing.T) {
	tests := []struct {
		format string
	}{
		{"png"},
		{"jpeg"},
		{"webp"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			srv := serve(t, http.StatusOK, encoded(t, tt.format, sample(80, 40)))
			dir := t.TempDir()
			f := NewFetcher(Options{TempDir: dir})

			out, err := f.Fetch(context.Background(), srv.URL+"/logo."+tt.format)
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if format != "png" {
				t.Errorf("format: got %s, want png", format)
			}
			if cfg.Width != 80 || cfg.Height != 40 {
				t.Errorf("size: got %dx%d", cfg.Width, cfg.Height)
			}

			left, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(left) != 0 {
				t.Errorf("transient file not removed: %v", left)
			}
		})
	}
}

func TestFetchDownscalesLargeImages(t *testing.T) {
	srv := serve(t, http.StatusOK, encoded(t, "png", sample(200, 100)))
	f := NewFetcher(Options{TempDir: t.TempDir(), MaxPixels: 50})

	out, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Errorf("size: got %dx%d, want 50x25", cfg.Width, cfg.Height)
	}
	if got := Aspect(out); got != 2 {
		t.Errorf("aspect: got %v, want 2", got)
	}
}

func TestFetchErrors(t *testing.T) {
	notFound := serve(t, http.StatusNotFound, []byte("missing"))
	garbage := serve(t, http.StatusOK, []byte("<html>not an image</html>"))
	tooLarge := serve(t, http.StatusOK, encoded(t, "png", sample(64, 64)))

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		url      string
		maxBytes int64
		want     apperr.Kind
	}{
		{"empty url", "  ", 0, apperr.LayoutData},
		{"not found", notFound.URL, 0, apperr.AssetFetch},
		{"not an image", garbage.URL, 0, apperr.AssetFetch},
		{"too large", tooLarge.URL, 16, apperr.AssetFetch},
		{"unreachable", closedURL, 0, apperr.AssetFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(Options{TempDir: t.TempDir(), MaxBytes: tt.maxBytes})
			_, err := f.Fetch(context.Background(), tt.url)
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("kind: got %s, want %s (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestRewriteURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			"https://res.cloudinary.com/demo/image/upload/v1712/school/logo.webp",
			"https://res.cloudinary.com/demo/image/upload/f_png/v1712/school/logo.webp",
		},
		{
			"https://res.cloudinary.com/demo/image/upload/f_png/v1712/logo.webp",
			"https://res.cloudinary.com/demo/image/upload/f_png/v1712/logo.webp",
		},
		{"https://cdn.example.com/logo.webp", "https://cdn.example.com/logo.webp"},
		{"https://res.cloudinary.com/demo/video/upload/clip.mp4", "https://res.cloudinary.com/demo/video/upload/clip.mp4"},
	}

	for _, tt := range tests {
		if got := RewriteURL(tt.in); got != tt.want {
			t.Errorf("RewriteURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAspectUnreadable(t *testing.T) {
	if got := Aspect([]byte("nope")); got != 0 {
		t.Errorf("got %v", got)
	}
}
