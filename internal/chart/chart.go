// Package chart renders per-device summary bar charts.
package chart

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 72.0
	fontSize       = 12.0
	tickMarkWidth  = 5
	pixelsPerTick  = 60.0
	barFill        = 0.7 // Share of a slot covered by its bar
	labelSpacingPx = 8

	defaultTopBorder    = 40
	defaultLeftBorder   = 70
	defaultBottomBorder = 70
	defaultRightBorder  = 20
)

// ErrNoBars is returned when a chart has nothing to draw.
var ErrNoBars = errors.New("chart has no bars")

// Bar is one device in a chart.
type Bar struct {
	Label string  // Device ID
	Value float64 // Metric value, ignored for dead devices
	Dead  bool    // Dead devices are drawn as full height marker bars
}

// Chart describes a bar chart of one metric across devices.
type Chart struct {
	Title string
	Unit  string // Y axis unit, e.g. "mA"
	Bars  []Bar
}

// BorderConfig defines the sizes of white space around the plot area
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for the value scale
	Bottom int // Space for device labels and the info bar
	Right  int // Right padding
}

// RenderConfig holds the chart layout options
type RenderConfig struct {
	Width    int
	Height   int
	FontSize float64
	Borders  BorderConfig
}

// Renderer draws charts into images.
type Renderer struct {
	config RenderConfig
	font   *truetype.Font
}

// NewRenderer creates a renderer, applying defaults for zero values.
func NewRenderer(config RenderConfig) (*Renderer, error) {
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.Borders.Top == 0 {
		config.Borders.Top = defaultTopBorder
	}
	if config.Borders.Left == 0 {
		config.Borders.Left = defaultLeftBorder
	}
	if config.Borders.Bottom == 0 {
		config.Borders.Bottom = defaultBottomBorder
	}
	if config.Borders.Right == 0 {
		config.Borders.Right = defaultRightBorder
	}

	plotWidth := config.Width - config.Borders.Left - config.Borders.Right
	plotHeight := config.Height - config.Borders.Top - config.Borders.Bottom
	if plotWidth <= 0 || plotHeight <= 0 {
		return nil, fmt.Errorf("chart: %dx%d px leaves no room for the plot", config.Width, config.Height)
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &Renderer{config: config, font: parsedFont}, nil
}

// Render draws c
func (r *Renderer) Render(c *Chart) (*image.RGBA, error) {
	if len(c.Bars) == 0 {
		return nil, ErrNoBars
	}

	img := image.NewRGBA(image.Rect(0, 0, r.config.Width, r.config.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plot := image.Rect(
		r.config.Borders.Left,
		r.config.Borders.Top,
		r.config.Width-r.config.Borders.Right,
		r.config.Height-r.config.Borders.Bottom,
	)

	scaleMax, step := valueScale(c.Bars, plot.Dy())

	ann := r.newAnnotator(img)
	defer ann.Close()

	if err := ann.drawValueScale(img, plot, scaleMax, step, c.Unit); err != nil {
		return nil, fmt.Errorf("drawing value scale: %w", err)
	}

	drawBars(img, plot, c.Bars, scaleMax)
	drawAxes(img, plot)

	if err := ann.drawTitle(img, c.Title); err != nil {
		return nil, fmt.Errorf("drawing title: %w", err)
	}
	if err := ann.drawLabels(plot, c.Bars); err != nil {
		return nil, fmt.Errorf("drawing labels: %w", err)
	}
	if err := ann.drawInfoBar(img, plot, c.Bars); err != nil {
		return nil, fmt.Errorf("drawing info bar: %w", err)
	}

	return img, nil
}

// valueScale returns the top of the value axis and the tick step.
func valueScale(bars []Bar, height int) (scaleMax, step float64) {
	var maxValue float64
	for _, b := range bars {
		if !b.Dead {
			maxValue = math.Max(maxValue, b.Value)
		}
	}
	if maxValue <= 0 {
		maxValue = 1
	}

	step = niceStep(maxValue, height)
	scaleMax = math.Ceil(maxValue/step) * step
	return scaleMax, step
}

// niceStep picks a 1-2-5 tick step giving roughly one tick per pixelsPerTick.
func niceStep(span float64, height int) float64 {
	desired := math.Max(float64(height)/pixelsPerTick, 1)
	rough := span / desired

	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * magnitude; step >= rough {
			return step
		}
	}
	return 10 * magnitude
}

func slotWidth(plot image.Rectangle, n int) float64 {
	return float64(plot.Dx()) / float64(n)
}

func drawBars(img *image.RGBA, plot image.Rectangle, bars []Bar, scaleMax float64) {
	slot := slotWidth(plot, len(bars))
	barWidth := max(int(slot*barFill), 1)

	for i, b := range bars {
		x0 := plot.Min.X + int(float64(i)*slot+(slot-float64(barWidth))/2)

		var c color.Color
		var height int
		if b.Dead {
			c = deadColor
			height = plot.Dy()
		} else {
			c = barColor(b.Value, scaleMax)
			height = int(math.Round(math.Max(b.Value, 0) / scaleMax * float64(plot.Dy())))
		}

		rect := image.Rect(x0, plot.Max.Y-height, x0+barWidth, plot.Max.Y)
		draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
}

func drawAxes(img *image.RGBA, plot image.Rectangle) {
	for y := plot.Min.Y; y <= plot.Max.Y; y++ {
		img.Set(plot.Min.X, y, axisColor)
	}
	for x := plot.Min.X; x <= plot.Max.X; x++ {
		img.Set(x, plot.Max.Y, axisColor)
	}
}

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
}

func (r *Renderer) newAnnotator(img *image.RGBA) *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(r.font)
	ctx.SetFontSize(r.config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)

	return &annotator{
		context: ctx,
		fontFace: truetype.NewFace(r.font, &truetype.Options{
			Size:    r.config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}
}

func (a *annotator) Close() error {
	return a.fontFace.Close()
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) textWidth(s string) int {
	return font.MeasureString(a.fontFace, s).Round()
}

func (a *annotator) drawValueScale(img *image.RGBA, plot image.Rectangle, scaleMax, step float64, unit string) error {
	descent := a.fontFace.Metrics().Descent.Round()

	for v := 0.0; v <= scaleMax+step/2; v += step {
		y := plot.Max.Y - int(math.Round(v/scaleMax*float64(plot.Dy())))

		// grid line, then tick mark
		for x := plot.Min.X + 1; x < plot.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
		for x := plot.Min.X - tickMarkWidth; x < plot.Min.X; x++ {
			img.Set(x, y, axisColor)
		}

		label := humanize.FtoaWithDigits(v, 2)
		pt := freetype.Pt(plot.Min.X-tickMarkWidth-3-a.textWidth(label), y+a.fontHeight()/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing value label: %w", err)
		}
	}

	if unit != "" {
		pt := freetype.Pt(3, plot.Min.Y-a.fontHeight()/2)
		if _, err := a.context.DrawString(unit, pt); err != nil {
			return fmt.Errorf("drawing unit: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTitle(img *image.RGBA, title string) error {
	if title == "" {
		return nil
	}
	x := (img.Bounds().Dx() - a.textWidth(title)) / 2
	pt := freetype.Pt(max(x, 0), a.fontHeight()+4)
	_, err := a.context.DrawString(title, pt)
	return err
}

// drawLabels writes device IDs under the bars, thinning them out when they
// would overlap.
func (a *annotator) drawLabels(plot image.Rectangle, bars []Bar) error {
	slot := slotWidth(plot, len(bars))

	var widest int
	for _, b := range bars {
		widest = max(widest, a.textWidth(b.Label))
	}
	every := max(int(math.Ceil(float64(widest+labelSpacingPx)/slot)), 1)

	y := plot.Max.Y + tickMarkWidth + a.fontHeight()
	for i := 0; i < len(bars); i += every {
		center := plot.Min.X + int(float64(i)*slot+slot/2)
		pt := freetype.Pt(center-a.textWidth(bars[i].Label)/2, y)
		if _, err := a.context.DrawString(bars[i].Label, pt); err != nil {
			return fmt.Errorf("drawing label %q: %w", bars[i].Label, err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, plot image.Rectangle, bars []Bar) error {
	var dead int
	for _, b := range bars {
		if b.Dead {
			dead++
		}
	}

	info := fmt.Sprintf("Devices: %s", humanize.Comma(int64(len(bars))))
	if dead > 0 {
		info += fmt.Sprintf("; dead: %s", humanize.Comma(int64(dead)))
	}

	textY := img.Bounds().Max.Y - a.fontFace.Metrics().Descent.Round() - 4
	_, err := a.context.DrawString(info, freetype.Pt(plot.Min.X, textY))
	return err
}
