package analysis

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/gridscout/internal/log"
	gdebug "github.com/teslashibe/gridscout/pkg/debug"
	"github.com/teslashibe/gridscout/pkg/grid"
	"github.com/teslashibe/gridscout/pkg/inference"
	"github.com/teslashibe/gridscout/pkg/storage"
)

func writeFrame(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "20240101_120000.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return path
}

func newAnalyzer(t *testing.T, provider inference.Provider) (*Analyzer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "images")
	store := storage.New(dir,
		storage.WithClock(func() time.Time { return time.Date(2024, 1, 1, 12, 0, 1, 0, time.Local) }),
		storage.WithLogger(log.Discard()),
	)
	annotator := grid.New(grid.WithFont("missing.ttf", 40), grid.WithLogger(log.Discard()))
	a := New(provider, annotator, store,
		WithLogger(log.Discard()),
		WithTimer(gdebug.NewTimer(true, log.Discard())),
	)
	return a, dir
}

func TestAnalyze(t *testing.T) {
	var got *inference.VisionRequest
	mock := inference.NewMock()
	mock.VisionFunc = func(ctx context.Context, req *inference.VisionRequest) (*inference.VisionResponse, error) {
		got = req
		return &inference.VisionResponse{Content: "Letter: E"}, nil
	}

	a, dir := newAnalyzer(t, mock)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	frame := writeFrame(t, dir, 1600, 1200)

	res := a.Analyze(context.Background(), "Under what letter is the door?", frame)

	require.True(t, res.OK(), res.String())
	assert.Equal(t, "Letter: E", res.Text)
	assert.Equal(t, "Letter: E", res.String())
	assert.Equal(t, filepath.Join(dir, "small_20240101_120001.jpg"), res.AnnotatedPath)
	assert.FileExists(t, res.AnnotatedPath)

	require.NotNil(t, got)
	assert.Equal(t, "Under what letter is the door?", got.Prompt)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, 850, got.Image.Bounds().Dx())
	assert.Equal(t, 650, got.Image.Bounds().Dy())
}

func TestAnalyzeCreatesOutputDir(t *testing.T) {
	a, dir := newAnalyzer(t, inference.WithResponse("ok"))
	frame := writeFrame(t, t.TempDir(), 320, 240)

	res := a.Analyze(context.Background(), "Describe the image", frame)

	require.True(t, res.OK(), res.String())
	assert.DirExists(t, dir)
}

func TestAnalyzeProviderError(t *testing.T) {
	a, _ := newAnalyzer(t, inference.WithError(errors.New("connection refused")))
	frame := writeFrame(t, t.TempDir(), 320, 240)

	res := a.Analyze(context.Background(), "Describe the image", frame)

	assert.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.String(), "Error: "), res.String())
	assert.Contains(t, res.String(), "connection refused")
	assert.NotEmpty(t, res.AnnotatedPath)
}

func TestAnalyzeMissingImage(t *testing.T) {
	mock := inference.NewMock()
	a, _ := newAnalyzer(t, mock)

	res := a.Analyze(context.Background(), "Describe the image", filepath.Join(t.TempDir(), "nope.jpg"))

	assert.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.String(), "Error: "))
	assert.Equal(t, 0, mock.CallCount("Vision"))
}

func TestAnalyzeUndecodableImage(t *testing.T) {
	mock := inference.NewMock()
	a, _ := newAnalyzer(t, mock)

	path := filepath.Join(t.TempDir(), "junk.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	res := a.Analyze(context.Background(), "Describe the image", path)

	assert.False(t, res.OK())
	assert.Equal(t, 0, mock.CallCount("Vision"))
}

func TestAnalyzeRecoversPanic(t *testing.T) {
	mock := inference.NewMock()
	mock.VisionFunc = func(ctx context.Context, req *inference.VisionRequest) (*inference.VisionResponse, error) {
		panic("provider exploded")
	}
	a, _ := newAnalyzer(t, mock)
	frame := writeFrame(t, t.TempDir(), 320, 240)

	var res Result
	assert.NotPanics(t, func() {
		res = a.Analyze(context.Background(), "Describe the image", frame)
	})
	assert.ErrorIs(t, res.Err, ErrPanic)
	assert.Contains(t, res.String(), "provider exploded")
}
