package stream

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/internal/fake"
)

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic = %v, want %v", r, target)
		}
	}()
	fn()
}

func payload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.InitialCapacity != DefaultInitialCapacity || c.SizeHint != DefaultSizeHint ||
		c.Regions != DefaultRegions || c.FenceTimeout != DefaultFenceTimeout {
		t.Errorf("withDefaults() = %+v", c)
	}
	if c.Usage&gpucore.BufferUsageCopyDst == 0 {
		t.Error("CopyDst usage not added")
	}
	if got := (Config{Regions: 1}).withDefaults().Regions; got != 2 {
		t.Errorf("Regions = %d, want at least 2", got)
	}
}

func TestUploadOffsetsAndContents(t *testing.T) {
	dev := fake.New()
	a := New(dev, Config{})
	defer a.Close()

	first := a.Upload(payload(10, 1), 4)
	second := a.Upload(payload(24, 50), 16)

	if first.Offset != 0 {
		t.Errorf("first.Offset = %d, want 0", first.Offset)
	}
	if second.Offset != 16 {
		t.Errorf("second.Offset = %d, want 16 (12 aligned up to 16)", second.Offset)
	}
	if a.Head() != 40 {
		t.Errorf("Head() = %d, want 40", a.Head())
	}
	if first.Buffer != second.Buffer || first.Buffer != a.Buffer(0) {
		t.Errorf("uploads landed in %d and %d, want region 0 buffer %d", first.Buffer, second.Buffer, a.Buffer(0))
	}

	if got := dev.Bytes(second.Buffer, second.Offset, 24); !bytes.Equal(got, payload(24, 50)) {
		t.Errorf("GPU bytes = %v, want %v", got, payload(24, 50))
	}
	if got := a.Staging(0)[first.Offset : first.Offset+10]; !bytes.Equal(got, payload(10, 1)) {
		t.Errorf("staging bytes = %v, want %v", got, payload(10, 1))
	}
	if pad := a.Staging(0)[10:12]; pad[0] != 0 || pad[1] != 0 {
		t.Errorf("padding = %v, want zeros", pad)
	}
}

func TestGrowthWithinSizeHint(t *testing.T) {
	dev := fake.New()
	a := New(dev, Config{SizeHint: 64 << 10})
	defer a.Close()

	initial := a.Capacity()
	prev := initial
	data := payload(64, 7)
	for i := 0; i < 1000; i++ {
		alloc := a.Upload(data, 4)
		if c := a.Capacity(); c < prev {
			t.Fatalf("upload %d: capacity shrank from %d to %d", i, prev, c)
		}
		prev = a.Capacity()
		if alloc.Offset != uint64(i*64) {
			t.Fatalf("upload %d: offset = %d, want %d", i, alloc.Offset, i*64)
		}
	}

	st := a.Stats()
	if st.Grows < 1 {
		t.Errorf("Grows = %d, want at least 1", st.Grows)
	}
	if st.SoftOverflows != 0 {
		t.Errorf("SoftOverflows = %d, want 0", st.SoftOverflows)
	}
	if a.Capacity() > 4*initial {
		t.Errorf("Capacity() = %d, want <= %d", a.Capacity(), 4*initial)
	}
}

func TestSoftOverflowWraps(t *testing.T) {
	dev := fake.New()
	a := New(dev, Config{InitialCapacity: 1024, SizeHint: 1024})
	defer a.Close()

	a.Upload(payload(1000, 0), 4)
	alloc := a.Upload(payload(100, 0), 4)

	if alloc.Offset != 0 {
		t.Errorf("Offset = %d, want 0 after wrap", alloc.Offset)
	}
	if a.Capacity() != 1024 {
		t.Errorf("Capacity() = %d, want 1024", a.Capacity())
	}
	if st := a.Stats(); st.SoftOverflows != 1 || st.Grows != 0 {
		t.Errorf("Stats() = %+v, want one soft overflow and no growth", st)
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	dev := fake.New()
	grow := New(dev, Config{InitialCapacity: 1024, SizeHint: 64 << 10})
	grow.Upload(payload(2048, 0), 4)
	grow.Close()

	wrap := New(dev, Config{InitialCapacity: 1024, SizeHint: 1024})
	wrap.Upload(payload(1000, 0), 4)
	wrap.Upload(payload(100, 0), 4)
	wrap.Close()

	tests := []struct {
		msg, level string
	}{
		{"stream: arena grown", "level=DEBUG"},
		{"stream: size hint exceeded, wrapping region", "level=WARN"},
	}
	lines := strings.Split(buf.String(), "\n")
	for _, tt := range tests {
		found := false
		for _, line := range lines {
			if strings.Contains(line, tt.msg) {
				found = true
				if !strings.Contains(line, tt.level) {
					t.Errorf("%q logged as %q, want %s", tt.msg, line, tt.level)
				}
			}
		}
		if !found {
			t.Errorf("%q not logged", tt.msg)
		}
	}
}

func TestOversizedWriteGrowsPastHint(t *testing.T) {
	dev := fake.New()
	a := New(dev, Config{InitialCapacity: 1024, SizeHint: 1024})
	defer a.Close()

	alloc := a.Upload(payload(3000, 0), 4)
	if a.Capacity() != 4096 {
		t.Errorf("Capacity() = %d, want 4096", a.Capacity())
	}
	if alloc.Offset != 0 || alloc.Buffer != a.Buffer(a.Active()) {
		t.Errorf("alloc = %+v, want offset 0 in the new active buffer", alloc)
	}
}

func TestReserveKeepsUploadsTogether(t *testing.T) {
	dev := fake.New()
	a := New(dev, Config{InitialCapacity: 256, SizeHint: 1 << 20})
	defer a.Close()

	a.Upload(payload(200, 0), 4)
	a.Reserve(128)
	if a.Capacity() != 512 {
		t.Fatalf("Capacity() = %d, want 512 after reserve", a.Capacity())
	}
	v := a.Upload(payload(64, 0), 4)
	i := a.Upload(payload(64, 0), 4)
	if v.Buffer != i.Buffer {
		t.Error("reserved uploads landed in different buffers")
	}
	if a.Stats().Grows != 1 {
		t.Errorf("Grows = %d, want 1", a.Stats().Grows)
	}
}

// orderingDevice fails the test when a buffer is written while a fence
// covering an earlier write to it has not been waited on.
type orderingDevice struct {
	*fake.Device
	t       *testing.T
	written map[gpucore.BufferID]bool
	covers  map[gpucore.FenceID][]gpucore.BufferID
	waited  map[gpucore.FenceID]bool
}

func newOrderingDevice(t *testing.T) *orderingDevice {
	return &orderingDevice{
		Device:  fake.New(),
		t:       t,
		written: make(map[gpucore.BufferID]bool),
		covers:  make(map[gpucore.FenceID][]gpucore.BufferID),
		waited:  make(map[gpucore.FenceID]bool),
	}
}

func (d *orderingDevice) WriteBuffer(id gpucore.BufferID, off uint64, data []byte) {
	for f, bufs := range d.covers {
		for _, b := range bufs {
			if b == id && !d.waited[f] {
				d.t.Errorf("buffer %d rewritten before fence %d was waited on", id, f)
			}
		}
	}
	d.written[id] = true
	d.Device.WriteBuffer(id, off, data)
}

func (d *orderingDevice) InsertFence() (gpucore.FenceID, error) {
	f, err := d.Device.InsertFence()
	for b := range d.written {
		d.covers[f] = append(d.covers[f], b)
	}
	clear(d.written)
	return f, err
}

func (d *orderingDevice) WaitFence(id gpucore.FenceID, timeout time.Duration) gpucore.WaitStatus {
	d.waited[id] = true
	return d.Device.WaitFence(id, timeout)
}

func TestRegionNotReusedBeforeFence(t *testing.T) {
	for _, k := range []int{2, 3, 4} {
		dev := newOrderingDevice(t)
		a := New(dev, Config{Regions: k})
		for frame := 0; frame < 10; frame++ {
			if a.Active() != frame%k {
				t.Fatalf("K=%d frame %d: Active() = %d, want %d", k, frame, a.Active(), frame%k)
			}
			a.Upload(payload(128, byte(frame)), 4)
			a.FinishFrame()
		}
		if got, want := a.Stats().FenceWaits, 10-k+1; got != want {
			t.Errorf("K=%d: FenceWaits = %d, want %d", k, got, want)
		}
		a.Close()
	}
}

func TestFinishFrameWaitsOnOldestFence(t *testing.T) {
	dev := fake.New()
	a := New(dev, Config{})
	defer a.Close()

	a.FinishFrame()
	if len(dev.Waits()) != 0 {
		t.Fatalf("first rotation waited on %v; region 1 has no fence", dev.Waits())
	}
	a.FinishFrame()
	waits := dev.Waits()
	if len(waits) != 1 {
		t.Fatalf("Waits() = %v, want one wait", waits)
	}
	f, _ := dev.Fence(waits[0])
	if f.Frame != 0 || !f.Destroyed {
		t.Errorf("waited fence = %+v, want frame 0 fence released", f)
	}
	if a.Frame() != 2 || a.Head() != 0 {
		t.Errorf("Frame() = %d Head() = %d, want 2 and 0", a.Frame(), a.Head())
	}
}

func TestFenceWaitFailurePanics(t *testing.T) {
	for _, status := range []gpucore.WaitStatus{gpucore.WaitTimeout, gpucore.WaitFailed} {
		t.Run(status.String(), func(t *testing.T) {
			dev := fake.New()
			dev.WaitStatus = status
			a := New(dev, Config{})
			a.FinishFrame()
			expectPanic(t, ErrFenceWait, a.FinishFrame)
		})
	}
}

func TestFenceWaitConditionSatisfied(t *testing.T) {
	dev := fake.New()
	dev.WaitStatus = gpucore.WaitConditionSatisfied
	a := New(dev, Config{})
	defer a.Close()
	for i := 0; i < 4; i++ {
		a.FinishFrame()
	}
	if a.Stats().FenceWaits != 3 {
		t.Errorf("FenceWaits = %d, want 3", a.Stats().FenceWaits)
	}
}

func TestRetiredBuffersOutliveTheirFrame(t *testing.T) {
	dev := fake.New()
	a := New(dev, Config{InitialCapacity: 64, SizeHint: 1 << 20})
	old0, old1 := a.Buffer(0), a.Buffer(1)

	a.Upload(payload(100, 0), 4)
	if a.Retired() != 2 {
		t.Fatalf("Retired() = %d, want 2", a.Retired())
	}

	a.FinishFrame()
	if b, _ := dev.Buffer(old0); b.Destroyed {
		t.Fatal("old buffer destroyed before its frame completed")
	}

	a.FinishFrame()
	for _, id := range []gpucore.BufferID{old0, old1} {
		if b, _ := dev.Buffer(id); !b.Destroyed {
			t.Errorf("buffer %d still alive after frame 0 fence", id)
		}
	}
	if a.Retired() != 0 {
		t.Errorf("Retired() = %d, want 0", a.Retired())
	}

	a.Close()
	if n := dev.LiveBuffers(); n != 0 {
		t.Errorf("LiveBuffers() = %d after Close, want 0", n)
	}
}

func TestAllocationFailurePanics(t *testing.T) {
	dev := fake.New()
	dev.FailCreateBuffer = true
	expectPanic(t, ErrAllocation, func() { New(dev, Config{}) })
}

func TestDeviceBufferLimitPanics(t *testing.T) {
	dev := fake.New()
	dev.Caps.MaxBufferSize = 1024
	a := New(dev, Config{InitialCapacity: 512, SizeHint: 1 << 20})
	expectPanic(t, ErrAllocation, func() { a.Upload(payload(2000, 0), 4) })
}

func TestUseAfterClosePanics(t *testing.T) {
	a := New(fake.New(), Config{})
	a.Close()
	a.Close()
	expectPanic(t, ErrClosed, func() { a.Upload([]byte{1, 2, 3, 4}, 4) })
}
