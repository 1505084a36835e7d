package photos

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcess_Downscales(t *testing.T) {
	out, err := Process(pngBytes(t, 400, 100), 200)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestProcess_KeepsSmallImages(t *testing.T) {
	out, err := Process(pngBytes(t, 30, 60), 200)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestProcess_RejectsNonImages(t *testing.T) {
	_, err := Process([]byte("make,model\nAcme,X1\n"), 200)
	assert.ErrorContains(t, err, "unsupported image format")
}

func TestSave_UploadsToBucket(t *testing.T) {
	var gotPath, gotAuth, gotUpsert, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := New(Config{SupabaseURL: srv.URL + "/", SupabaseKey: "service-key", Bucket: "parts"}, nil)
	got, err := store.Save(context.Background(), pngBytes(t, 10, 10), "abc123.png")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/storage/v1/object/public/parts/abc123.jpg", got)
	assert.Equal(t, "/storage/v1/object/parts/abc123.jpg", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "image/jpeg", http.DetectContentType(gotBody))
}

func TestSave_FallsBackToLocalDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Bucket not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := New(Config{SupabaseURL: srv.URL, SupabaseKey: "k", LocalDir: dir}, nil)
	got, err := store.Save(context.Background(), pngBytes(t, 10, 10), "abc123.jpg")
	require.NoError(t, err)

	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "abc123.jpg")), got)
	data, err := os.ReadFile(filepath.Join(dir, "abc123.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", http.DetectContentType(data))
}

func TestSave_NowhereToStore(t *testing.T) {
	got, err := New(Config{}, nil).Save(context.Background(), pngBytes(t, 10, 10), "abc123.jpg")
	require.NoError(t, err)
	assert.Empty(t, got)
}
