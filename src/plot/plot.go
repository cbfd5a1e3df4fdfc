// Package plot renders latency traces and anomaly reports as PNG charts.
//
// Charts are drawn with go-chart on a dark background at 2400x1600 by
// default, the size the thesis figures were produced at.
package plot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Size is the pixel size of a rendered chart.
type Size struct {
	Width  int
	Height int
}

// DefaultSize matches the figures of the original test reports.
var DefaultSize = Size{Width: 2400, Height: 1600}

func (s Size) orDefault() Size {
	if s.Width <= 0 || s.Height <= 0 {
		return DefaultSize
	}
	return s
}

// scale returns font sizes relative to the default height.
func (s Size) scale(pt float64) float64 {
	f := pt * float64(s.Height) / float64(DefaultSize.Height)
	if f < 8 {
		f = 8
	}
	return f
}

var (
	colorBackground = drawing.Color{R: 0, G: 0, B: 0, A: 255}
	colorForeground = drawing.Color{R: 255, G: 255, B: 255, A: 255}
	colorGrid       = drawing.Color{R: 70, G: 70, B: 70, A: 255}
	colorSample     = drawing.Color{R: 0, G: 255, B: 0, A: 255}
	colorReference  = drawing.Color{R: 0, G: 200, B: 0, A: 255}
)

// pointStyle renders points only, without connecting lines.
func pointStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    width,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: width,
	}
}

// axisStyle is the white-on-black axis look shared by all charts.
func axisStyle(sz Size) chart.Style {
	return chart.Style{
		StrokeColor: colorForeground,
		FontColor:   colorForeground,
		FontSize:    sz.scale(20),
	}
}

func gridStyle() chart.Style {
	return chart.Style{StrokeColor: colorGrid, StrokeWidth: 1}
}

// baseChart returns a dark chart frame with the given title and axes.
func baseChart(sz Size, title, xName, yName string, xr, yr *chart.ContinuousRange, xt, yt []chart.Tick) chart.Chart {
	return chart.Chart{
		Title: title,
		TitleStyle: chart.Style{
			FontColor: colorForeground,
			FontSize:  sz.scale(32),
		},
		Width:  sz.Width,
		Height: sz.Height,
		Background: chart.Style{
			FillColor: colorBackground,
			Padding:   chart.Box{Top: int(sz.scale(80)), Left: int(sz.scale(40)), Right: int(sz.scale(40)), Bottom: int(sz.scale(40))},
		},
		Canvas: chart.Style{FillColor: colorBackground},
		XAxis: chart.XAxis{
			Name:           xName,
			NameStyle:      axisStyle(sz),
			Style:          axisStyle(sz),
			Range:          xr,
			Ticks:          xt,
			GridMajorStyle: gridStyle(),
		},
		YAxis: chart.YAxis{
			Name:           yName,
			NameStyle:      axisStyle(sz),
			Style:          axisStyle(sz),
			Range:          yr,
			Ticks:          yt,
			GridMajorStyle: gridStyle(),
		},
	}
}

// render draws ch and decodes the PNG back into an image.
func render(ch chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart %q: %w", ch.Title, err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart %q: %w", ch.Title, err)
	}
	return img, nil
}

// Blank returns a dark placeholder image, shown where a chart could not be
// drawn.
func Blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 18, G: 18, B: 18, A: 255})
		}
	}
	return img
}

// WritePNG encodes img to path, replacing any existing file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
