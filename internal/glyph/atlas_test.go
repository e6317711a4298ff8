package glyph

import (
	"errors"
	"testing"

	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/internal/fake"
)

func TestPackerShelves(t *testing.T) {
	p := newPacker(32, 32, 1)
	a := p.allocate(10, 8)
	b := p.allocate(10, 8)
	c := p.allocate(20, 8)

	if a != (Region{X: 0, Y: 0, Width: 10, Height: 8}) {
		t.Errorf("first = %v", a)
	}
	if b.X != 11 || b.Y != 0 {
		t.Errorf("second = %v, want same shelf at x=11", b)
	}
	if c.X != 0 || c.Y != 9 {
		t.Errorf("third = %v, want new shelf at y=9", c)
	}
	if r := p.allocate(40, 1); r.IsValid() {
		t.Errorf("oversized allocate = %v, want invalid", r)
	}
	if r := p.allocate(0, 5); r.IsValid() {
		t.Errorf("empty allocate = %v, want invalid", r)
	}
	p.reset()
	if got := p.allocate(5, 5); got.X != 0 || got.Y != 0 {
		t.Errorf("after reset = %v, want origin", got)
	}
}

func TestPackerFull(t *testing.T) {
	p := newPacker(16, 16, 0)
	for i := 0; i < 4; i++ {
		if !p.allocate(16, 4).IsValid() {
			t.Fatalf("allocate %d failed", i)
		}
	}
	if p.allocate(1, 1).IsValid() {
		t.Error("allocate on full packer succeeded")
	}
	if u := p.utilization(); u != 1 {
		t.Errorf("utilization() = %v, want 1", u)
	}
}

func TestLayoutAdvances(t *testing.T) {
	a := NewAtlas()
	quads := a.Layout("AB\nC")
	if len(quads) != 3 {
		t.Fatalf("Layout() = %d quads, want 3", len(quads))
	}
	if dx := quads[1].X0 - quads[0].X0; dx != 7 {
		t.Errorf("advance = %v, want 7", dx)
	}
	if quads[0].Y0 != 0 {
		t.Errorf("first line top = %v, want 0", quads[0].Y0)
	}
	if dy := quads[2].Y0 - quads[0].Y0; dy != float32(a.LineHeight()) {
		t.Errorf("line step = %v, want %d", dy, a.LineHeight())
	}
	if quads[2].X0 != quads[0].X0 {
		t.Errorf("second line starts at %v, want %v", quads[2].X0, quads[0].X0)
	}
	for i, q := range quads {
		if q.U1 <= q.U0 || q.V1 <= q.V0 || q.U1 > 1 || q.V1 > 1 {
			t.Errorf("quad %d has bad UVs %+v", i, q)
		}
	}
}

func TestLayoutNormalizes(t *testing.T) {
	a := NewAtlas()
	if n := len(a.Layout("e\u0301")); n != 1 {
		t.Errorf("decomposed e-acute laid out as %d quads, want 1", n)
	}
}

func TestGlyphCached(t *testing.T) {
	a := NewAtlas()
	g1, err := a.Glyph('x')
	if err != nil {
		t.Fatal(err)
	}
	used := a.Utilization()
	g2, _ := a.Glyph('x')
	if g1 != g2 || a.Utilization() != used {
		t.Error("second lookup rasterized again")
	}

	var ink bool
	for y := g1.Region.Y; y < g1.Region.Y+g1.Region.Height; y++ {
		for x := g1.Region.X; x < g1.Region.X+g1.Region.Width; x++ {
			if a.Pixels().AlphaAt(x, y).A != 0 {
				ink = true
			}
		}
	}
	if !ink {
		t.Error("glyph region is blank")
	}
}

func TestMeasure(t *testing.T) {
	a := NewAtlas()
	w, h := a.Measure("abc\nde")
	if w != 21 || h != 2*a.LineHeight() {
		t.Errorf("Measure() = %d, %d; want 21, %d", w, h, 2*a.LineHeight())
	}
}

func TestSyncUploadsWhenDirty(t *testing.T) {
	dev := fake.New()
	a := NewAtlas()
	a.Layout("hi")
	if err := a.Sync(dev); err != nil {
		t.Fatal(err)
	}
	tex, ok := dev.Texture(a.Texture())
	if !ok || tex.Desc.Format != gpucore.TextureFormatR8Unorm || len(tex.Pixels) != AtlasSize*AtlasSize {
		t.Fatalf("texture = %+v, want %dx%d R8", tex.Desc, AtlasSize, AtlasSize)
	}
	if a.Dirty() {
		t.Error("Dirty() after Sync = true")
	}

	a.Layout("hi")
	if a.Dirty() {
		t.Error("cached glyphs marked the atlas dirty")
	}
	a.Layout("Z")
	if !a.Dirty() {
		t.Error("new glyph did not mark the atlas dirty")
	}

	a.Release(dev)
	if dev.LiveTextures() != 0 {
		t.Error("Release() left the texture alive")
	}
}

func TestAtlasFull(t *testing.T) {
	a := NewAtlas()
	a.packer = newPacker(8, 8, 0)
	if _, err := a.Glyph('W'); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Glyph() error = %v, want ErrAtlasFull", err)
	}
}
