package imdraw

import "github.com/gogpu/imdraw/internal/batch"

// Stats reports the work of the current frame and the arena state.
type Stats struct {
	Frame     uint64
	DrawCalls int
	Vertices  int
	Indices   int

	// IndexFormats counts indexed draws per index width, indexed by
	// gpucore.IndexFormat.
	IndexFormats [4]int

	Color, Textured, Text ArenaStats
}

// ArenaStats describes one streaming arena.
type ArenaStats struct {
	Capacity      uint64
	Head          uint64
	Grows         int
	SoftOverflows int
	FenceWaits    int
	BytesUploaded uint64
}

// Stats returns the counters of the frame in progress, or of the last
// frame between EndFrame and the next BeginFrame.
func (c *Context) Stats() Stats {
	s := Stats{Frame: c.frames}
	for _, ps := range []batch.Stats{c.color.Stats(), c.tex.Stats(), c.text.Stats()} {
		s.DrawCalls += ps.DrawCalls
		s.Vertices += ps.Vertices
		s.Indices += ps.Indices
		for i, n := range ps.Formats {
			s.IndexFormats[i] += n
		}
	}
	out := [3]*ArenaStats{&s.Color, &s.Textured, &s.Text}
	for i, a := range c.arenas {
		as := a.Stats()
		*out[i] = ArenaStats{
			Capacity:      as.Capacity,
			Head:          a.Head(),
			Grows:         as.Grows,
			SoftOverflows: as.SoftOverflows,
			FenceWaits:    as.FenceWaits,
			BytesUploaded: as.BytesUploaded,
		}
	}
	return s
}
