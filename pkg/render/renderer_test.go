package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/models"
)

// small canvas keeps the tests quick; the dimension invariant is exercised at
// full print size separately
var testCfg = config.Renderer{
	CanvasWidth:  900,
	CanvasHeight: 1080,
	MinFontSize:  40,
	MaxFontSize:  80,
}

func TestRenderDimensionInvariance(t *testing.T) {
	r, err := NewRenderer(testCfg)
	require.NoError(t, err)

	phrases := []string{
		"Hi",
		"Hello World",
		"a phrase that is a fair bit longer than the others",
		strings.Repeat("wrap me please ", 6),
	}
	for _, phrase := range phrases {
		design, err := r.Render(models.DesignRequest{Phrase: phrase, Style: "modern"})
		require.NoError(t, err, "phrase %q", phrase)

		img, err := png.Decode(bytes.NewReader(design.ImageBytes))
		require.NoError(t, err)
		assert.Equal(t, testCfg.CanvasWidth, img.Bounds().Dx(), "phrase %q", phrase)
		assert.Equal(t, testCfg.CanvasHeight, img.Bounds().Dy(), "phrase %q", phrase)
	}
}

func TestRenderAtPrintDimensions(t *testing.T) {
	r, err := NewRenderer(config.Renderer{})
	require.NoError(t, err)

	design, err := r.Render(models.DesignRequest{Phrase: "Hello World", Style: "bold"})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(design.ImageBytes))
	require.NoError(t, err)
	assert.Equal(t, 4500, img.Bounds().Dx())
	assert.Equal(t, 5400, img.Bounds().Dy())
}

func TestRenderUnknownStyleAndColor(t *testing.T) {
	r, err := NewRenderer(testCfg)
	require.NoError(t, err)

	design, err := r.Render(models.DesignRequest{
		Phrase:          "Whatever works",
		Style:           "vaporwave-brutalist",
		ColorPreference: "the color of a summer storm",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, design.ImageBytes)
}

func TestRenderEveryKnownStyle(t *testing.T) {
	r, err := NewRenderer(testCfg)
	require.NoError(t, err)

	for style := range styleTreatments {
		_, err := r.Render(models.DesignRequest{Phrase: "Style check", Style: style})
		assert.NoError(t, err, "style %s", style)
	}
}

func TestRenderDeterministic(t *testing.T) {
	r, err := NewRenderer(testCfg)
	require.NoError(t, err)

	req := models.DesignRequest{Phrase: "Same in, same out", Style: "retro", ColorPreference: "blue"}
	a, err := r.Render(req)
	require.NoError(t, err)
	b, err := r.Render(req)
	require.NoError(t, err)
	assert.Equal(t, a.ImageBytes, b.ImageBytes)
}

func TestLayoutWrapsInsteadOfOverflowing(t *testing.T) {
	r, err := NewRenderer(testCfg)
	require.NoError(t, err)

	phrase := strings.Repeat("longword ", 12)
	usableW := testCfg.CanvasWidth * 8 / 10
	usableH := testCfg.CanvasHeight * 8 / 10

	face, lines, err := r.layout(phrase, defaultTreatment, usableW, usableH)
	require.NoError(t, err)
	defer face.Close()

	assert.Greater(t, len(lines), 1, "long phrase should wrap")
	for _, line := range lines {
		assert.LessOrEqual(t, measureString(face, line, 0), usableW, "line %q", line)
	}
	blockHeight := face.Metrics().Height.Ceil() * len(lines)
	assert.LessOrEqual(t, blockHeight, usableH, "wrapped block must stay inside the canvas")
}

func TestWrapLines(t *testing.T) {
	r, err := NewRenderer(testCfg)
	require.NoError(t, err)
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: 20, DPI: 72, Hinting: font.HintingFull})
	require.NoError(t, err)
	defer face.Close()

	t.Run("short phrase stays on one line", func(t *testing.T) {
		lines := wrapLines(face, "Hello", 10000, 0)
		assert.Equal(t, []string{"Hello"}, lines)
	})

	t.Run("words never split mid-word", func(t *testing.T) {
		lines := wrapLines(face, "alpha beta gamma delta", 120, 0)
		assert.Greater(t, len(lines), 1)
		assert.Equal(t, "alpha beta gamma delta", strings.Join(lines, " "))
	})
}

func TestColorFor(t *testing.T) {
	tests := []struct {
		preference string
		want       string
	}{
		{"", "default"},
		{"bright RED please", "red"},
		{"something blue-ish", "blue"},
		{"chartreuse", "default"},
	}
	for _, tt := range tests {
		got := colorFor(tt.preference)
		switch tt.want {
		case "default":
			assert.Equal(t, defaultFill, got, "preference %q", tt.preference)
		case "red":
			assert.EqualValues(t, 255, got.R, "preference %q", tt.preference)
			assert.EqualValues(t, 0, got.B)
		case "blue":
			assert.EqualValues(t, 255, got.B, "preference %q", tt.preference)
			assert.EqualValues(t, 0, got.R)
		}
	}
}

func TestContrastColor(t *testing.T) {
	light := colorFor("white")
	dark := colorFor("black")
	assert.EqualValues(t, 0, contrastColor(light).R, "light fill gets a black outline")
	assert.EqualValues(t, 255, contrastColor(dark).R, "dark fill gets a white outline")
}

func TestNewRendererBadFontPathFallsBack(t *testing.T) {
	cfg := testCfg
	cfg.FontPath = "/nonexistent/font.ttf"
	r, err := NewRenderer(cfg)
	require.NoError(t, err)

	_, err = r.Render(models.DesignRequest{Phrase: "Built-in font"})
	assert.NoError(t, err)
}
