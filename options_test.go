package imdraw

import (
	"testing"
	"time"

	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/internal/stream"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.regions != stream.DefaultRegions || o.maxCameraDepth != camera.DefaultMaxDepth {
		t.Errorf("defaultOptions() = %+v", o)
	}
	if o.logger != nil {
		t.Error("default logger should be nil")
	}
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   Option
		check func(options) bool
	}{
		{"regions", WithRegions(3), func(o options) bool { return o.regions == 3 }},
		{"regions floor", WithRegions(1), func(o options) bool { return o.regions == 2 }},
		{"initial capacity", WithInitialCapacity(1 << 12), func(o options) bool { return o.initialCapacity == 1<<12 }},
		{"zero capacity ignored", WithInitialCapacity(0), func(o options) bool { return o.initialCapacity == stream.DefaultInitialCapacity }},
		{"size hint", WithSizeHint(64 << 10), func(o options) bool { return o.sizeHint == 64<<10 }},
		{"fence timeout", WithFenceTimeout(time.Second), func(o options) bool { return o.fenceTimeout == time.Second }},
		{"negative timeout ignored", WithFenceTimeout(-1), func(o options) bool { return o.fenceTimeout == stream.DefaultFenceTimeout }},
		{"camera depth", WithMaxCameraDepth(4), func(o options) bool { return o.maxCameraDepth == 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			if !tt.check(o) {
				t.Errorf("%s: options = %+v", tt.name, o)
			}
		})
	}
}

func TestRegionsOptionReachesArenas(t *testing.T) {
	ctx, _ := newTestContext(t, WithRegions(3), WithInitialCapacity(1024))
	for _, a := range ctx.arenas {
		if a.Regions() != 3 || a.Capacity() != 1024 {
			t.Errorf("arena has %d regions of %d bytes, want 3 of 1024", a.Regions(), a.Capacity())
		}
	}
}
