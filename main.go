// fxsim 粒子特效查看器
//
// Usage:
//
//	go run . [flags]
//
// Flags:
//
//	-effect <name>   启动时预览的特效（例如 -effect=fireworks）
//	-config <path>   查看器配置文件，默认使用内置 data/fxsim.yaml
//	-seed <n>        实例种子，0 表示使用上次保存的种子
//	-scale <x>       模拟速度倍率
//	-verbose         输出详细日志
package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/quasilyte/gdata/v2"

	"github.com/decker502/fxsim/pkg/app"
	"github.com/decker502/fxsim/pkg/embedded"
	"github.com/decker502/fxsim/pkg/game"
)

var (
	effectFlag  = flag.String("effect", "", "Effect to preview on start")
	configFlag  = flag.String("config", "", "Viewer config file (default: embedded data/fxsim.yaml)")
	seedFlag    = flag.Uint64("seed", 0, "Instance seed (0 = last used)")
	scaleFlag   = flag.Float64("scale", 0, "Simulation time scale (0 = last used)")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	// 初始化嵌入资源
	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	// gdata 打开失败时降级为仅内存设置
	var store *gdata.Manager
	if m, err := gdata.Open(gdata.Config{AppName: "fxsim"}); err == nil {
		store = m
	} else {
		log.Printf("Warning: settings storage unavailable: %v", err)
	}
	settings, err := game.NewSettingsManager(store)
	if err != nil {
		log.Fatalf("设置初始化失败: %v", err)
	}

	viewer, err := app.NewApp(app.Config{
		Verbose:    *verboseFlag,
		Effect:     *effectFlag,
		ConfigPath: *configFlag,
		Seed:       *seedFlag,
		TimeScale:  *scaleFlag,
		Settings:   settings,
	})
	if err != nil {
		log.Fatalf("查看器初始化失败: %v", err)
	}

	win := viewer.WindowConfig()
	ebiten.SetWindowSize(win.Width, win.Height)
	ebiten.SetWindowTitle(win.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(viewer.Fullscreen())

	if err := ebiten.RunGame(viewer); err != nil {
		log.Fatal(err)
	}
}
