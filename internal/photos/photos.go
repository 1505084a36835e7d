// Package photos stores item photos in Supabase Storage, falling back to a
// local directory when the bucket is not configured or rejects the upload.
package photos

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxDimension = 1024
	DefaultBucket       = "inventory-images"
	jpegQuality         = 85
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Config selects where photos go. Empty SupabaseURL or SupabaseKey disables
// the upload; empty LocalDir disables the fallback.
type Config struct {
	SupabaseURL  string
	SupabaseKey  string
	Bucket       string
	LocalDir     string
	MaxDimension int
}

// Store saves photos and returns a URL or local path for them.
type Store struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Store. logger may be nil.
func New(cfg Config, logger *slog.Logger) *Store {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	cfg.SupabaseURL = strings.TrimRight(cfg.SupabaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Save normalises the image to JPEG and stores it under filename. An empty
// URL with a nil error means there was nowhere to keep it.
func (s *Store) Save(ctx context.Context, data []byte, filename string) (string, error) {
	processed, err := Process(data, s.cfg.MaxDimension)
	if err != nil {
		return "", err
	}
	name := jpegName(filename)

	if s.cfg.SupabaseURL != "" && s.cfg.SupabaseKey != "" {
		publicURL, err := s.upload(ctx, processed, name)
		if err == nil {
			return publicURL, nil
		}
		s.logger.Warn("photo upload failed, using local fallback", "file", name, "error", err)
	}

	if s.cfg.LocalDir == "" {
		return "", nil
	}
	return s.writeLocal(processed, name)
}

func (s *Store) upload(ctx context.Context, data []byte, name string) (string, error) {
	objectPath := url.PathEscape(s.cfg.Bucket) + "/" + url.PathEscape(name)
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s", s.cfg.SupabaseURL, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseKey)
	req.Header.Set("apikey", s.cfg.SupabaseKey)
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s", s.cfg.SupabaseURL, objectPath), nil
}

func (s *Store) writeLocal(data []byte, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.LocalDir, 0o755); err != nil {
		return "", fmt.Errorf("creating photo dir: %w", err)
	}
	path := filepath.Join(s.cfg.LocalDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return filepath.ToSlash(path), nil
}

func jpegName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
}

// Process checks the bytes are a JPEG or PNG, shrinks the image so neither
// side exceeds maxDim and re-encodes it as JPEG.
func Process(data []byte, maxDim int) ([]byte, error) {
	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s", detected)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = h * maxDim / w
	} else {
		newW = w * maxDim / h
	}
	newW, newH = max(newW, 1), max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
