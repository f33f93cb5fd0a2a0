// Package grid overlays a lettered/numbered reference grid on photos so that a
// vision model can name image regions by cell ("C4").
//
// Letters A-I run across a bar on top, digits 1-9 down a bar on the left. Each
// label is centred in one ninth of the photo's width (or height).
package grid

import (
	"image"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LabelCount is the number of labels along each axis.
const LabelCount = 9

var (
	// TopLabels run left to right across the top bar.
	TopLabels = [LabelCount]string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}

	// LeftLabels run top to bottom down the left bar.
	LeftLabels = [LabelCount]string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}
)

// Label is one placed grid label. X and Y are the intended centre in output pixels.
type Label struct {
	Text string
	X, Y float64
}

// Layout describes where things landed on the annotated image.
type Layout struct {
	Photo image.Rectangle // Area covered by the resized photo
	Top   []Label
	Left  []Label
}

// Annotator resizes frames and draws the grid. It is safe for sequential use;
// the font face is not safe for concurrent drawing.
type Annotator struct {
	config   *Config
	face     font.Face
	fallback bool
}

// New creates an annotator. Font loading never fails: when the configured font
// cannot be used the built-in bitmap font is substituted and a warning logged.
func New(opts ...Option) *Annotator {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	a := &Annotator{config: cfg}

	face, err := loadFace(cfg.FontPath, cfg.FontSize)
	if err != nil {
		cfg.Logger.Warn("font not available, using default font",
			"component", "grid",
			"path", cfg.FontPath,
			"error", err,
		)
		face = basicfont.Face7x13
		a.fallback = true
	}
	a.face = face

	return a
}

// Fallback reports whether the built-in bitmap font is in use.
func (a *Annotator) Fallback() bool {
	return a.fallback
}

// Config returns a copy of the annotator configuration.
func (a *Annotator) Config() Config {
	return *a.config
}

// Annotate resizes src to the configured width and adds the labelled bars.
// src is only read; the returned image is freshly allocated and owned by the caller.
func (a *Annotator) Annotate(src image.Image) (*image.RGBA, Layout) {
	cfg := a.config
	photo := Resize(src, cfg.Width)
	pw, ph := photo.Bounds().Dx(), photo.Bounds().Dy()

	var canvas *image.RGBA
	var origin image.Point

	switch cfg.Compositing {
	case Overlay:
		canvas = photo
	default:
		origin = image.Pt(cfg.LeftWidth, cfg.TopHeight)
		canvas = image.NewRGBA(image.Rect(0, 0, pw+cfg.LeftWidth, ph+cfg.TopHeight))
		draw.Draw(canvas, photo.Bounds().Add(origin), photo, image.Point{}, draw.Src)
	}

	bar := image.NewUniform(cfg.BarColor)
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	draw.Draw(canvas, image.Rect(0, 0, w, cfg.TopHeight), bar, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, cfg.LeftWidth, h), bar, image.Point{}, draw.Src)

	layout := Layout{
		Photo: image.Rect(origin.X, origin.Y, origin.X+pw, origin.Y+ph),
		Top:   make([]Label, 0, LabelCount),
		Left:  make([]Label, 0, LabelCount),
	}

	slotW := float64(pw) / LabelCount
	topY := cfg.topLabelY()
	for i, text := range TopLabels {
		x := float64(origin.X) + slotW*(float64(i)+0.5) + cfg.TopLabelOffset
		a.drawCentered(canvas, text, x, topY)
		layout.Top = append(layout.Top, Label{Text: text, X: x, Y: topY})
	}

	slotH := float64(ph) / LabelCount
	leftX := float64(cfg.LeftWidth) / 2
	for i, text := range LeftLabels {
		y := float64(origin.Y) + slotH*(float64(i)+0.5)
		a.drawCentered(canvas, text, leftX, y)
		layout.Left = append(layout.Left, Label{Text: text, X: leftX, Y: y})
	}

	return canvas, layout
}

// Close releases the font face.
func (a *Annotator) Close() error {
	if a.fallback || a.face == nil {
		return nil
	}
	return a.face.Close()
}

// drawCentered draws text so that its ink bounding box is centred on (cx, cy).
func (a *Annotator) drawCentered(dst *image.RGBA, text string, cx, cy float64) {
	bounds, _ := font.BoundString(a.face, text)
	tw := (bounds.Max.X - bounds.Min.X).Ceil()
	th := (bounds.Max.Y - bounds.Min.Y).Ceil()

	x := int(math.Round(cx)) - tw/2 - bounds.Min.X.Floor()
	y := int(math.Round(cy)) - th/2 - bounds.Min.Y.Floor()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(a.config.TextColor),
		Face: a.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Resize scales src to the given width, preserving aspect ratio
// (height = round(width * h / w)), with Catmull-Rom resampling.
func Resize(src image.Image, width int) *image.RGBA {
	b := src.Bounds()
	if width < 1 {
		width = 1
	}

	height := 1
	if b.Dx() > 0 {
		height = int(math.Round(float64(width) * float64(b.Dy()) / float64(b.Dx())))
		if height < 1 {
			height = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if b.Empty() {
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func loadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
