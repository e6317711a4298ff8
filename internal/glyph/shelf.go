package glyph

import "fmt"

// Region is a rectangle inside the atlas, in pixels.
type Region struct {
	X, Y          int
	Width, Height int
}

// IsValid returns true if the region has valid dimensions.
func (r Region) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf is one horizontal row of the packer.
type shelf struct {
	y      int // top edge
	height int // tallest item so far, padding included
	nextX  int // next free column
}

// packer places rectangles on horizontal shelves. Each rectangle goes on
// the first shelf with room, or on a new shelf below the last one.
type packer struct {
	width   int
	height  int
	padding int
	shelves []shelf
	used    int
}

func newPacker(width, height, padding int) *packer {
	return &packer{
		width:   width,
		height:  height,
		padding: max(padding, 0),
		shelves: make([]shelf, 0, 16),
	}
}

// allocate returns an invalid region when the rectangle does not fit.
func (p *packer) allocate(width, height int) Region {
	if width <= 0 || height <= 0 {
		return Region{}
	}
	pw := width + p.padding
	ph := height + p.padding
	if pw > p.width || ph > p.height {
		return Region{}
	}

	for i := range p.shelves {
		s := &p.shelves[i]
		if s.nextX+pw > p.width {
			continue
		}
		// A shelf with items cannot grow taller.
		if ph > s.height && s.nextX > 0 {
			continue
		}
		r := Region{X: s.nextX, Y: s.y, Width: width, Height: height}
		s.nextX += pw
		s.height = max(s.height, ph)
		p.used += width * height
		return r
	}

	y := 0
	if n := len(p.shelves); n > 0 {
		y = p.shelves[n-1].y + p.shelves[n-1].height
	}
	if y+ph > p.height {
		return Region{}
	}
	p.shelves = append(p.shelves, shelf{y: y, height: ph, nextX: pw})
	p.used += width * height
	return Region{X: 0, Y: y, Width: width, Height: height}
}

func (p *packer) reset() {
	p.shelves = p.shelves[:0]
	p.used = 0
}

// utilization returns the fraction of area used (0.0 to 1.0).
func (p *packer) utilization() float64 {
	return float64(p.used) / float64(p.width*p.height)
}
