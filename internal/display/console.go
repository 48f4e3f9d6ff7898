// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Console renders scrolling lines of text on a monochrome display: white
// text on black, starting at the top-left corner.
type Console struct {
	dev   display.Drawer
	face  font.Face
	scale int

	cols, rows int
	lines      []string
}

// NewConsole wraps dev. Call Init before the first PrintLine.
func NewConsole(dev display.Drawer, scale int) (*Console, error) {
	if scale < 1 {
		return nil, fmt.Errorf("display: text scale must be at least 1, got %d", scale)
	}
	c := &Console{dev: dev, face: basicfont.Face7x13, scale: scale}
	canvas := c.canvasBounds()
	m := c.face.Metrics()
	c.cols = canvas.Dx() / basicfont.Face7x13.Advance
	c.rows = canvas.Dy() / m.Height.Ceil()
	if c.cols < 1 || c.rows < 1 {
		return nil, fmt.Errorf("display: %v too small for text scale %d", dev.Bounds(), scale)
	}
	return c, nil
}

// Init clears the screen to black and homes the cursor.
func (c *Console) Init() error {
	c.lines = c.lines[:0]
	return c.render()
}

// PrintLine appends text below the previous line. Text wider than the
// screen wraps; once the screen is full the oldest lines scroll off.
func (c *Console) PrintLine(text string) error {
	c.lines = append(c.lines, wrap(text, c.cols)...)
	if over := len(c.lines) - c.rows; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
	}
	return c.render()
}

// Lines returns the text currently on screen, top to bottom.
func (c *Console) Lines() []string {
	return append([]string(nil), c.lines...)
}

// Size returns the screen capacity in characters.
func (c *Console) Size() (cols, rows int) { return c.cols, c.rows }

func (c *Console) canvasBounds() image.Rectangle {
	b := c.dev.Bounds()
	return image.Rect(0, 0, b.Dx()/c.scale, b.Dy()/c.scale)
}

func (c *Console) render() error {
	canvas := image1bit.NewVerticalLSB(c.canvasBounds())
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  &image.Uniform{image1bit.On},
		Face: c.face,
	}
	height := c.face.Metrics().Height.Ceil()
	ascent := c.face.Metrics().Ascent.Ceil()
	for i, line := range c.lines {
		drawer.Dot = fixed.P(0, i*height+ascent)
		drawer.DrawString(line)
	}

	var frame image.Image = canvas
	if c.scale > 1 {
		b := c.dev.Bounds()
		scaled := image1bit.NewVerticalLSB(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
		frame = scaled
	}
	if err := c.dev.Draw(c.dev.Bounds(), frame, image.Point{}); err != nil {
		return fmt.Errorf("display: draw: %w", err)
	}
	return nil
}

// wrap splits text into chunks of at most cols runes.
func wrap(text string, cols int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{""}
	}
	var out []string
	for len(runes) > cols {
		out = append(out, string(runes[:cols]))
		runes = runes[cols:]
	}
	return append(out, string(runes))
}
