package imdraw

import (
	"log/slog"
	"time"

	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/internal/stream"
)

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := imdraw.NewContext(dev, sink,
//	    imdraw.WithRegions(3),
//	    imdraw.WithSizeHint(8<<20),
//	)
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	regions         int
	initialCapacity uint64
	sizeHint        uint64
	fenceTimeout    time.Duration
	maxCameraDepth  int
	logger          *slog.Logger
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		regions:         stream.DefaultRegions,
		initialCapacity: stream.DefaultInitialCapacity,
		sizeHint:        stream.DefaultSizeHint,
		fenceTimeout:    stream.DefaultFenceTimeout,
		maxCameraDepth:  camera.DefaultMaxDepth,
	}
}

// WithRegions sets how many frames each streaming arena keeps in flight.
// Values below 2 are raised to 2.
func WithRegions(n int) Option {
	return func(o *options) {
		o.regions = max(n, stream.DefaultRegions)
	}
}

// WithInitialCapacity sets the starting size of each arena region in bytes.
func WithInitialCapacity(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.initialCapacity = n
		}
	}
}

// WithSizeHint sets the soft per-frame upload budget of each arena. A write
// that would cross the hint and still fits the current capacity wraps to
// the start of the region instead of growing it.
func WithSizeHint(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.sizeHint = n
		}
	}
}

// WithFenceTimeout bounds the wait for a region still in use by the GPU.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fenceTimeout = d
		}
	}
}

// WithMaxCameraDepth sets the hard cap on camera nesting.
func WithMaxCameraDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCameraDepth = n
		}
	}
}

// WithLogger installs l as the package logger, as [SetLogger] does.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
