package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const placeholderWidth, placeholderHeight = 1000, 600

var (
	placeholderBackground = color.White
	placeholderTitle      = color.Black
	placeholderText       = color.Gray{Y: 96}
)

// drawPlaceholder encodes a blank PNG with the title near the top and the
// message centered.
func drawPlaceholder(w io.Writer, title, message string) error {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderBackground), image.Point{}, draw.Src)

	drawCentered(img, title, 60, placeholderTitle)
	drawCentered(img, message, placeholderHeight/2, placeholderText)

	return png.Encode(w, img)
}

func drawCentered(img draw.Image, text string, baseline int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text)
	x := (fixed.I(img.Bounds().Dx()) - width) / 2
	if x < 0 {
		x = 0
	}
	d.Dot = fixed.Point26_6{X: x, Y: fixed.I(baseline)}
	d.DrawString(text)
}
