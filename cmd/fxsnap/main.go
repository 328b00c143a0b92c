// Package main 无窗口运行一个特效并输出快照
//
// 以固定步长推进特效，把最后一帧光栅化为 PNG，
// 可选把逐帧绘制记录保存为 lz4 压缩的捕获文件，或与已有捕获比对。
//
// Usage:
//
//	go run ./cmd/fxsnap -effect fireworks -frames 120 -out fireworks.png
//	go run ./cmd/fxsnap -effect campfire -capture campfire.fxcap
//	go run ./cmd/fxsnap -effect campfire -compare campfire.fxcap
//
// 比对失败时以状态码 1 退出，可用于回归测试。
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/config"
	"github.com/decker502/fxsim/pkg/game"
	"github.com/decker502/fxsim/pkg/render"
)

var (
	dataFlag    = flag.String("data", "data", "Data directory containing effects/ and fxsim.yaml")
	effectFlag  = flag.String("effect", "", "Effect name under <data>/effects")
	fileFlag    = flag.String("file", "", "Effect file path (overrides -effect)")
	seedFlag    = flag.Uint64("seed", 1, "Instance seed")
	framesFlag  = flag.Int("frames", 0, "Number of steps (0 = config snapshot.frames)")
	dtFlag      = flag.Float64("dt", 0, "Step size in seconds (0 = config simulation.fixedDt)")
	outFlag     = flag.String("out", "", "PNG output path")
	captureFlag = flag.String("capture", "", "Write per-frame draw records to this capture file")
	compareFlag = flag.String("compare", "", "Compare the run against an existing capture file")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()
	if !*verboseFlag {
		log.SetOutput(io.Discard)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fxsnap: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadViewerConfig(filepath.Join(*dataFlag, "fxsim.yaml"))
	if err != nil {
		return err
	}
	def, err := loadDefinition()
	if err != nil {
		return err
	}

	frames := *framesFlag
	if frames <= 0 {
		frames = cfg.Snapshot.Frames
	}
	dt := *dtFlag
	if dt <= 0 {
		dt = cfg.Simulation.FixedDt
	}

	inst, err := game.NewInstance(def, game.Options{
		Seed:     *seedFlag,
		Emitting: true,
		Rotation: mgl64.QuatIdent(),
	})
	if err != nil {
		return err
	}

	capture := game.NewCaptureData(def.Name, *seedFlag, dt)
	for i := 0; i < frames; i++ {
		inst.Advance(dt)
		capture.Record(inst)
	}
	st := inst.Stats()
	fmt.Printf("%s: %d steps of %.4fs, %d emitters, %d particles, %d dropped\n",
		def.Name, frames, dt, st.Emitters, st.Particles, st.Dropped)

	serializer := game.NewCaptureSerializer()
	if *captureFlag != "" {
		if err := serializer.SaveCapture(capture, *captureFlag); err != nil {
			return err
		}
		fmt.Printf("capture written to %s\n", *captureFlag)
	}
	if *compareFlag != "" {
		if err := compare(serializer, capture, *compareFlag); err != nil {
			return err
		}
	}

	if *outFlag != "" {
		if err := writeSnapshot(cfg, inst, *outFlag); err != nil {
			return err
		}
		fmt.Printf("snapshot written to %s\n", *outFlag)
	}
	return nil
}

func loadDefinition() (*particle.Definition, error) {
	if *fileFlag != "" {
		return particle.ParseFile(*fileFlag)
	}
	if *effectFlag == "" {
		return nil, errors.New("either -effect or -file is required")
	}
	lib := game.NewEffectLibrary(os.DirFS(filepath.Join(*dataFlag, "effects")), ".")
	return lib.Get(*effectFlag)
}

func compare(serializer *game.CaptureSerializer, run *game.CaptureData, path string) error {
	want, err := serializer.LoadCapture(path)
	if err != nil {
		return err
	}
	if want.Effect != run.Effect || want.Seed != run.Seed || want.Dt != run.Dt {
		return fmt.Errorf("capture %s was recorded with effect=%s seed=%d dt=%g",
			path, want.Effect, want.Seed, want.Dt)
	}
	if frame := game.Diff(want, run); frame >= 0 {
		return fmt.Errorf("run differs from %s at frame %d", path, frame)
	}
	fmt.Printf("run matches %s (%d frames)\n", path, len(run.Frames))
	return nil
}

func writeSnapshot(cfg *config.ViewerConfig, inst *game.Instance, path string) error {
	cam := render.NewCamera(cfg.Camera, cfg.Snapshot.Width, cfg.Snapshot.Height)
	img, err := render.NewSnapshot(cfg).Render(inst, cam, cfg.Snapshot.Background)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render.WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
