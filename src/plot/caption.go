package plot

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Caption draws text in the bottom-left corner of a copy of img, one line per
// '\n', on a translucent dark box.
func Caption(img image.Image, text string) image.Image {
	if img == nil || strings.TrimSpace(text) == "" {
		return img
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)

	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	textCol := image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	shadowCol := image.NewUniform(color.RGBA{R: 0, G: 0, B: 0, A: 180})
	dr := &font.Drawer{Dst: rgba, Src: textCol, Face: face}
	tw := 0
	for _, l := range lines {
		if w := dr.MeasureString(l).Ceil(); w > tw {
			tw = w
		}
	}
	pad := 6
	x := b.Min.X + 8
	yLast := b.Max.Y - 6
	yFirst := yLast - (len(lines)-1)*lineH
	bg := image.NewUniform(color.RGBA{R: 0, G: 0, B: 0, A: 200})
	rect := image.Rect(x-pad, yFirst-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, yLast+pad/2)
	draw.Draw(rgba, rect, bg, image.Point{}, draw.Over)

	for i, l := range lines {
		y := yFirst + i*lineH
		sh := &font.Drawer{Dst: rgba, Src: shadowCol, Face: face, Dot: fixed.Point26_6{X: fixed.I(x + 1), Y: fixed.I(y + 1)}}
		sh.DrawString(l)
		dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
		dr.DrawString(l)
	}
	return rgba
}
