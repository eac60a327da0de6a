// Package contactsheet lays decoded frames out in a labelled grid using the
// gg library.
package contactsheet

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// ErrNoFrames is returned when Render is given nothing to draw.
var ErrNoFrames = errors.New("contactsheet: no frames")

// Thumb is one frame of the sheet.
type Thumb struct {
	Image   image.Image
	Seconds float64
}

// Options configures the grid.
type Options struct {
	Columns     int
	ThumbWidth  int
	Gap         int
	LabelHeight int
	FontPath    string
	FontSize    float64
	Background  color.Color
	LabelColor  color.Color
}

// DefaultOptions returns a four-column sheet with 240 pixel thumbnails.
func DefaultOptions() Options {
	return Options{
		Columns:     4,
		ThumbWidth:  240,
		Gap:         8,
		LabelHeight: 20,
		FontSize:    13,
		Background:  color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff},
		LabelColor:  color.White,
	}
}

// Render draws thumbs row by row. Every cell has the aspect ratio of the
// first thumb and its timestamp is printed under it.
func Render(thumbs []Thumb, opts Options) (image.Image, error) {
	if len(thumbs) == 0 {
		return nil, ErrNoFrames
	}
	if opts.Columns <= 0 || opts.ThumbWidth <= 0 {
		return nil, fmt.Errorf("contactsheet: invalid layout %d columns, thumb width %d", opts.Columns, opts.ThumbWidth)
	}
	first := thumbs[0].Image.Bounds()
	if first.Empty() {
		return nil, fmt.Errorf("contactsheet: empty first frame")
	}

	cols := min(opts.Columns, len(thumbs))
	rows := (len(thumbs) + cols - 1) / cols
	thumbW := opts.ThumbWidth
	thumbH := max(1, int(math.Round(float64(thumbW)*float64(first.Dy())/float64(first.Dx()))))
	cellH := thumbH + opts.LabelHeight

	width := cols*thumbW + (cols+1)*opts.Gap
	height := rows*cellH + (rows+1)*opts.Gap

	dc := gg.NewContext(width, height)
	dc.SetColor(opts.Background)
	dc.Clear()
	if opts.FontPath != "" {
		if err := dc.LoadFontFace(opts.FontPath, opts.FontSize); err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
	}

	for i, t := range thumbs {
		x := opts.Gap + (i%cols)*(thumbW+opts.Gap)
		y := opts.Gap + (i/cols)*(cellH+opts.Gap)

		dc.DrawImage(resize(t.Image, thumbW, thumbH), x, y)

		if opts.LabelHeight > 0 {
			dc.SetColor(opts.LabelColor)
			dc.DrawStringAnchored(FormatTimestamp(t.Seconds), float64(x)+float64(thumbW)/2, float64(y+thumbH)+float64(opts.LabelHeight)/2, 0.5, 0.5)
		}
	}
	return dc.Image(), nil
}

func resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

// Format specifies image encoding format.
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
)

// FormatFromPath picks JPEG for .jpg and .jpeg names and PNG otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	}
	return FormatPNG
}

// Encode writes img to w in the given format. quality only applies to JPEG.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPEG:
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("encode JPEG: %w", err)
		}
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %d", format)
	}
	return nil
}
