package detector

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"imagedetect/internal/models"
)

const boxThickness = 3

var palette = []color.RGBA{
	{0, 255, 0, 255},
	{255, 56, 56, 255},
	{255, 157, 151, 255},
	{255, 178, 29, 255},
	{72, 249, 10, 255},
	{0, 194, 255, 255},
	{52, 69, 147, 255},
	{203, 56, 255, 255},
}

func classColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return palette[id%len(palette)]
}

// Annotate returns a copy of src with a rectangle and label drawn for every box.
func Annotate(src image.Image, boxes []models.DetectedBox) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	for _, box := range boxes {
		r := box.Rect(bounds)
		if r.Empty() {
			continue
		}
		col := classColor(box.ClassID)
		drawRect(dst, r.Min.Y, r.Min.X, r.Max.Y-1, r.Max.X-1, col)
		drawLabel(dst, r, fmt.Sprintf("%s %.2f", box.ClassName, box.Confidence), col)
	}

	return dst
}

func drawRect(img *image.RGBA, y1, x1, y2, x2 int, col color.Color) {
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if (image.Point{x, y}).In(bounds) {
			img.Set(x, y, col)
		}
	}

	for t := 0; t < boxThickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(x, y1+t)
			setPixel(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(x1+t, y)
			setPixel(x2-t, y)
		}
	}
}

// drawLabel puts text on a filled strip above the box, or inside it when the
// box touches the top edge.
func drawLabel(img *image.RGBA, box image.Rectangle, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil() + 4
	height := face.Metrics().Height.Ceil() + 2

	top := box.Min.Y - height
	if top < img.Bounds().Min.Y {
		top = box.Min.Y
	}
	strip := image.Rect(box.Min.X, top, box.Min.X+width, top+height).Intersect(img.Bounds())
	draw.Draw(img, strip, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dst = img
	d.Src = image.NewUniform(contrastColor(bg))
	d.Dot = fixed.P(strip.Min.X+2, strip.Min.Y+face.Metrics().Ascent.Ceil()+1)
	d.DrawString(text)
}

func contrastColor(c color.RGBA) color.RGBA {
	luma := 299*int(c.R) + 587*int(c.G) + 114*int(c.B)
	if luma > 128*1000 {
		return color.RGBA{0, 0, 0, 255}
	}
	return color.RGBA{255, 255, 255, 255}
}
