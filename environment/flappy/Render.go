package flappy

import (
	"github.com/fogleman/gg"
)

// Renderer draws Flappy states to PNG frames for inspecting a trained
// policy
type Renderer struct {
	width  int
	height int
	scale  float64 // Pixels per world unit
}

// NewRenderer returns a Renderer producing frames height pixels tall.
// Frame width covers the visible world from the left edge to the pipe
// spawn horizon.
func NewRenderer(height int) *Renderer {
	scale := float64(height)
	return &Renderer{
		width:  int(scale * spawnAhead),
		height: height,
		scale:  scale,
	}
}

// worldToScreen converts world coordinates to screen coordinates. The
// world's y axis points up, the screen's points down.
func (r *Renderer) worldToScreen(x, y float64) (float64, float64) {
	return x * r.scale, float64(r.height) - y*r.scale
}

// SaveFrame draws the environment's current state and writes it to a
// PNG file at the given path
func (r *Renderer) SaveFrame(f *Flappy, path string) error {
	dc := gg.NewContext(r.width, r.height)

	// Sky
	dc.SetRGB(0.53, 0.81, 0.92)
	dc.Clear()

	// Pipes
	dc.SetRGB(0.13, 0.55, 0.13)
	for _, p := range f.pipes {
		left, _ := r.worldToScreen(p.x-0.5*f.config.PipeWidth, 0)
		width := f.config.PipeWidth * r.scale

		gapTop := p.gapY + 0.5*f.config.PipeGap
		gapBottom := p.gapY - 0.5*f.config.PipeGap

		// Upper pipe, from the ceiling down to the top of the gap
		_, top := r.worldToScreen(0, f.config.WorldHeight)
		_, gapTopScreen := r.worldToScreen(0, gapTop)
		dc.DrawRectangle(left, top, width, gapTopScreen-top)
		dc.Fill()

		// Lower pipe, from the bottom of the gap down to the ground
		_, gapBottomScreen := r.worldToScreen(0, gapBottom)
		_, ground := r.worldToScreen(0, 0)
		dc.DrawRectangle(left, gapBottomScreen, width, ground-gapBottomScreen)
		dc.Fill()
	}

	// Bird
	birdX, birdY := r.worldToScreen(BirdX, f.y)
	dc.SetRGB(1.0, 0.84, 0.0)
	dc.DrawCircle(birdX, birdY, 0.02*r.scale)
	dc.Fill()

	return dc.SavePNG(path)
}
