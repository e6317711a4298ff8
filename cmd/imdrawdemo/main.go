// Command imdrawdemo runs a short headless frame loop with the imdraw debug
// renderer on the noop GPU device and writes the last frame to a PNG file.
//
// It exercises every draw path: shapes, text, a textured quad and a gizmo
// that is dragged along X by a scripted pointer.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"honnef.co/go/color"

	"github.com/gogpu/imdraw"
	"github.com/gogpu/imdraw/backend/wgpu"
	"github.com/gogpu/imdraw/camera"
	"github.com/gogpu/imdraw/imageio"
	"github.com/gogpu/imdraw/vecmath"
)

func main() {
	var (
		width   = flag.Int("width", 800, "frame width")
		height  = flag.Int("height", 600, "frame height")
		frames  = flag.Int("frames", 60, "number of frames to run")
		output  = flag.String("output", "imdraw.png", "output file (empty to skip)")
		texture = flag.String("texture", "", "optional image file drawn on a quad")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *width, *height, *frames, *output, *texture); err != nil {
		logger.Error("imdrawdemo failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, width, height, frames int, output, texturePath string) error {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer openDev.Device.Destroy()

	backend, err := wgpu.New(openDev.Device, openDev.Queue,
		wgpu.WithTargetSize(width, height),
		wgpu.WithClearColor(gputypes.Color{R: 0.1, G: 0.1, B: 0.12, A: 1}))
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx, err := imdraw.NewContext(backend, backend, imdraw.WithLogger(logger))
	if err != nil {
		return err
	}
	defer ctx.Close()

	var tex *imdraw.Texture
	if texturePath != "" {
		img, err := imageio.Load(texturePath)
		if err != nil {
			return err
		}
		if tex, err = ctx.NewTextureFromImage(img); err != nil {
			return err
		}
	}

	s := newScene(ctx, width, height, tex)
	for i := range frames {
		if err := s.frame(i, frames); err != nil {
			return err
		}
	}

	st := ctx.Stats()
	logger.Info("frames done",
		"frames", st.Frame, "draws", st.DrawCalls, "vertices", st.Vertices,
		"color_capacity", st.Color.Capacity, "text_capacity", st.Text.Capacity)

	if output == "" {
		return nil
	}
	img, err := backend.ReadPixels()
	if err != nil {
		return err
	}
	if err := imageio.SavePNG(output, img); err != nil {
		return err
	}
	logger.Info("frame saved", "path", output, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}

type scene struct {
	ctx           *imdraw.Context
	width, height int
	tex           *imdraw.Texture
	cam           camera.Camera
	gizmo         imdraw.GizmoID
	target        vecmath.Vec3
}

func newScene(ctx *imdraw.Context, width, height int, tex *imdraw.Texture) *scene {
	cam := camera.Default()
	cam.Origin = vecmath.V3(4, 3, 6)
	return &scene{
		ctx:    ctx,
		width:  width,
		height: height,
		tex:    tex,
		cam:    cam,
		gizmo:  ctx.NewGizmoID(),
		target: vecmath.V3(0, 0.5, 0),
	}
}

// pointer scripts a press on the gizmo X axis every 20 frames followed by
// a drag to the right.
func (s *scene) pointer(i int) imdraw.Pointer {
	w, h := float32(s.width), float32(s.height)
	vp := s.cam.ProjectionMatrix(w, h).Mul(s.cam.ViewMatrix())
	clip := vp.MulVec4(vecmath.V3(0.8, 0.5, 0).Point())
	if clip.W <= 0 {
		return imdraw.Pointer{}
	}
	x := (clip.X/clip.W*0.5 + 0.5) * w
	y := (0.5 - clip.Y/clip.W*0.5) * h
	return imdraw.Pointer{X: x + float32(i%20)*2, Y: y, Down: i%20 > 0}
}

func (s *scene) frame(i, total int) error {
	ctx := s.ctx
	ctx.BeginFrame(s.width, s.height, s.pointer(i))

	ctx.BeginCamera(s.cam)
	ctx.Grid(10, 1, false, imdraw.Gray.WithAlpha(128), 1)
	ctx.Axes(1.5, 2)
	ctx.Box(vecmath.V3(-1, 0, -1), vecmath.V3(1, 1, 1), imdraw.Yellow, 1)
	ctx.Circle(vecmath.Vec3{}, vecmath.UnitX, vecmath.UnitZ, 2, 48, imdraw.Cyan, 1)

	angle := float32(i) / float32(max(total, 1)) * 2 * math32.Pi
	pts := make([]vecmath.Vec3, 0, 33)
	for k := range 33 {
		a := angle + float32(k)/32*2*math32.Pi
		pts = append(pts, vecmath.V3(math32.Cos(a)*1.5, 1.5+math32.Sin(3*a)*0.2, math32.Sin(a)*1.5))
	}
	hue := float64((i * 6) % 360)
	ctx.Polyline(pts, imdraw.ColorFromSpace(color.Make(color.Oklch, 0.75, 0.15, hue, 1)), 1)
	ctx.Point(s.target, imdraw.White, 4)

	if s.tex != nil {
		ctx.TexturedQuad(s.tex,
			vecmath.V3(-1, 0.01, 1), vecmath.V3(1, 0.01, 1),
			vecmath.V3(1, 0.01, -1), vecmath.V3(-1, 0.01, -1), imdraw.White)
	}

	if ctx.ManipulatePosition(s.gizmo, &s.target, 1) {
		ctx.Text(s.target, "dragging", imdraw.Yellow, 1)
	}
	ctx.Text(vecmath.V3(0, 1.2, 0), fmt.Sprintf("frame %d", i), imdraw.White, 1)
	ctx.EndCamera()

	ctx.BeginCamera2DCanvas()
	ctx.Quad(vecmath.V3(8, 8, 0), vecmath.V3(200, 8, 0), vecmath.V3(200, 40, 0), vecmath.V3(8, 40, 0), imdraw.Black.WithAlpha(160))
	ctx.EndCamera()

	return ctx.EndFrame()
}
