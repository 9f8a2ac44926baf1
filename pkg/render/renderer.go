package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/models"
)

// treatment is the visual recipe applied per style. Values are pixels on the
// full-size print canvas.
type treatment struct {
	OutlineWidth  int
	ShadowOffset  int
	LetterSpacing int
}

var styleTreatments = map[string]treatment{
	"modern":   {OutlineWidth: 6, ShadowOffset: 0, LetterSpacing: 0},
	"bold":     {OutlineWidth: 12, ShadowOffset: 0, LetterSpacing: 0},
	"retro":    {OutlineWidth: 8, ShadowOffset: 30, LetterSpacing: 10},
	"script":   {OutlineWidth: 3, ShadowOffset: 0, LetterSpacing: 20},
	"graffiti": {OutlineWidth: 12, ShadowOffset: 40, LetterSpacing: 0},
}

var defaultTreatment = styleTreatments["modern"]

// ordered so that matching is deterministic when a preference names several
// colors
var colorTable = []struct {
	name string
	col  color.NRGBA
}{
	{"red", color.NRGBA{R: 255, A: 255}},
	{"blue", color.NRGBA{B: 255, A: 255}},
	{"green", color.NRGBA{G: 255, A: 255}},
	{"yellow", color.NRGBA{R: 255, G: 255, A: 255}},
	{"purple", color.NRGBA{R: 128, B: 128, A: 255}},
	{"orange", color.NRGBA{R: 255, G: 165, A: 255}},
	{"pink", color.NRGBA{R: 255, G: 192, B: 203, A: 255}},
	{"white", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	{"black", color.NRGBA{A: 255}},
}

// high-contrast default: white fill with black outline reads on any garment
var defaultFill = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Renderer produces fixed-size print-ready PNGs from design requests. It is
// deterministic and makes no network calls.
type Renderer struct {
	width, height    int
	minFont, maxFont int
	font             *sfnt.Font
}

func NewRenderer(cfg config.Renderer) (*Renderer, error) {
	r := &Renderer{
		width:   cfg.CanvasWidth,
		height:  cfg.CanvasHeight,
		minFont: cfg.MinFontSize,
		maxFont: cfg.MaxFontSize,
	}
	if r.width <= 0 {
		r.width = 4500
	}
	if r.height <= 0 {
		r.height = 5400
	}
	if r.minFont <= 0 {
		r.minFont = 200
	}
	if r.maxFont < r.minFont {
		r.maxFont = 400
	}

	if cfg.FontPath != "" {
		if data, err := os.ReadFile(cfg.FontPath); err != nil {
			log.WithFields(log.Fields{"path": cfg.FontPath, "error": err}).
				Warn("could not read configured font, using built-in")
		} else if f, err := opentype.Parse(data); err != nil {
			log.WithFields(log.Fields{"path": cfg.FontPath, "error": err}).
				Warn("could not parse configured font, using built-in")
		} else {
			r.font = f
		}
	}
	if r.font == nil {
		f, err := opentype.Parse(gobold.TTF)
		if err != nil {
			return nil, fmt.Errorf("failed to parse built-in font: %w", err)
		}
		r.font = f
	}
	return r, nil
}

func (r *Renderer) Render(req models.DesignRequest) (models.RenderedDesign, error) {
	t := treatmentFor(req.Style)
	fill := colorFor(req.ColorPreference)
	outline := contrastColor(fill)

	marginX := r.width / 10
	marginY := r.height / 10
	usableW := r.width - 2*marginX
	usableH := r.height - 2*marginY

	face, lines, err := r.layout(req.Phrase, t, usableW, usableH)
	if err != nil {
		return models.RenderedDesign{}, err
	}
	defer face.Close()

	canvas := image.NewNRGBA(image.Rect(0, 0, r.width, r.height))

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	blockHeight := lineHeight * len(lines)
	top := (r.height-blockHeight)/2 + metrics.Ascent.Ceil()

	for i, line := range lines {
		lineW := measureString(face, line, t.LetterSpacing)
		x := (r.width - lineW) / 2
		y := top + i*lineHeight

		if t.ShadowOffset > 0 {
			shadow := color.NRGBA{A: 160}
			drawString(canvas, face, line, x+t.ShadowOffset, y+t.ShadowOffset, shadow, t.LetterSpacing)
		}
		if t.OutlineWidth > 0 {
			stride := t.OutlineWidth / 3
			if stride < 1 {
				stride = 1
			}
			for dx := -t.OutlineWidth; dx <= t.OutlineWidth; dx += stride {
				for dy := -t.OutlineWidth; dy <= t.OutlineWidth; dy += stride {
					drawString(canvas, face, line, x+dx, y+dy, outline, t.LetterSpacing)
				}
			}
		}
		drawString(canvas, face, line, x, y, fill, t.LetterSpacing)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return models.RenderedDesign{}, fmt.Errorf("failed to encode design: %w", err)
	}
	return models.RenderedDesign{ImageBytes: buf.Bytes()}, nil
}

// layout picks the largest font size at which the wrapped phrase fits the
// usable area. It wraps before shrinking below the minimum legible size; at
// the minimum the wrapped layout is used regardless.
func (r *Renderer) layout(phrase string, t treatment, usableW, usableH int) (font.Face, []string, error) {
	size := r.sizeFor(len([]rune(phrase)))
	for {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create font face: %w", err)
		}

		lines := wrapLines(face, phrase, usableW, t.LetterSpacing)
		blockHeight := face.Metrics().Height.Ceil() * len(lines)
		wide := 0
		for _, l := range lines {
			if w := measureString(face, l, t.LetterSpacing); w > wide {
				wide = w
			}
		}
		if (wide <= usableW && blockHeight <= usableH) || size-25 < r.minFont {
			return face, lines, nil
		}
		face.Close()
		size -= 25
	}
}

// sizeFor maps phrase length to a starting font size, longer phrases starting
// smaller.
func (r *Renderer) sizeFor(n int) int {
	span := r.maxFont - r.minFont
	switch {
	case n > 50:
		return r.minFont
	case n > 30:
		return r.minFont + span/2
	case n > 15:
		return r.maxFont - span/4
	default:
		return r.maxFont
	}
}

// wrapLines greedily packs words into lines no wider than maxW. A single word
// wider than maxW gets its own line.
func wrapLines(face font.Face, phrase string, maxW, spacing int) []string {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return []string{phrase}
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if measureString(face, candidate, spacing) > maxW {
			lines = append(lines, current)
			current = w
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

func measureString(face font.Face, s string, spacing int) int {
	if spacing == 0 {
		return font.MeasureString(face, s).Ceil()
	}
	w, n := 0, 0
	for _, r := range s {
		w += font.MeasureString(face, string(r)).Ceil()
		n++
	}
	if n > 1 {
		w += spacing * (n - 1)
	}
	return w
}

func drawString(dst draw.Image, face font.Face, s string, x, y int, col color.Color, spacing int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	if spacing == 0 {
		d.DrawString(s)
		return
	}
	for _, r := range s {
		d.DrawString(string(r))
		d.Dot.X += fixed.I(spacing)
	}
}

func treatmentFor(style string) treatment {
	if t, ok := styleTreatments[strings.ToLower(style)]; ok {
		return t
	}
	return defaultTreatment
}

// colorFor matches a color name anywhere inside the stated preference, same
// loose matching the chat wording needs ("maybe something blue?").
func colorFor(preference string) color.NRGBA {
	if preference == "" {
		return defaultFill
	}
	lower := strings.ToLower(preference)
	for _, entry := range colorTable {
		if strings.Contains(lower, entry.name) {
			return entry.col
		}
	}
	return defaultFill
}

func contrastColor(c color.NRGBA) color.NRGBA {
	brightness := (int(c.R) + int(c.G) + int(c.B)) / 3
	if brightness > 128 {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
}
