// Package app 提供特效查看器的核心包装器
//
// 该包将查看器初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
//
// 操作:
//
//	Left/Right   切换特效
//	Space        重新开始（相同种子重放）
//	R            换一个种子重新开始
//	E            开关根发射器
//	P            暂停
//	+/-          调整模拟速度
//	W            世界空间环绕演示（实例沿圆周移动）
//	N            在随机位置追加一个实例，播放完自动回收
//	方向键上下/滚轮 调整相机俯仰和距离，A/D 旋转相机
//	F11          切换全屏
package app

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/config"
	"github.com/decker502/fxsim/pkg/embedded"
	"github.com/decker502/fxsim/pkg/game"
	"github.com/decker502/fxsim/pkg/render"
	"github.com/decker502/fxsim/pkg/utils"
)

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// Effect 启动时预览的特效名，为空则使用上次的设置或第一个特效
	Effect string
	// ConfigPath 查看器配置文件，为空则使用内置配置
	ConfigPath string
	// Seed 实例种子，为 0 时使用设置中的种子
	Seed uint64
	// TimeScale 模拟速度，为 0 时使用设置中的值
	TimeScale float64
	// Settings 设置管理器，可为 nil（不持久化）
	Settings *game.SettingsManager
}

// 世界空间演示的环绕半径和角速度
const (
	orbitRadius = 3.0
	orbitSpeed  = 1.2 // rad/s
)

// App 是查看器的核心包装器，实现 ebiten.Game 接口
type App struct {
	cfg      *config.ViewerConfig
	library  *game.EffectLibrary
	manager  *game.EffectManager
	settings *game.SettingsManager

	camera   *render.Camera
	renderer *render.Renderer
	bg       color.RGBA

	names   []string
	index   int
	primary game.Handle
	extras  map[game.Handle]bool
	rng     *rand.Rand

	seed        uint64
	timeScale   float64
	paused      bool
	worldSpace  bool
	orbitAngle  float64
	accumulator float64

	status  string
	verbose bool
}

// NewApp 创建并初始化查看器
//
// 调用此函数前，必须先调用 embedded.Init() 初始化嵌入资源。
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	viewerCfg, err := loadViewerConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	effectsFS, err := embedded.Effects()
	if err != nil {
		return nil, fmt.Errorf("内置特效加载失败: %w", err)
	}
	library := game.NewEffectLibrary(effectsFS, ".")
	names, err := library.Names()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no effects found in %s", embedded.EffectsDir)
	}
	log.Printf("[App] Found %d effects", len(names))

	settings := cfg.Settings
	if settings == nil {
		settings, _ = game.NewSettingsManager(nil)
	}
	s := settings.GetSettings()

	a := &App{
		cfg:        viewerCfg,
		library:    library,
		manager:    game.NewEffectManager(),
		settings:   settings,
		camera:     render.NewCamera(viewerCfg.Camera, viewerCfg.Window.Width, viewerCfg.Window.Height),
		renderer:   render.NewRenderer(viewerCfg),
		names:      names,
		extras:     make(map[game.Handle]bool),
		seed:       s.Seed,
		timeScale:  s.TimeScale,
		worldSpace: s.WorldSpace,
		verbose:    cfg.Verbose,
	}
	if cfg.Seed != 0 {
		a.seed = cfg.Seed
	}
	if cfg.TimeScale > 0 {
		a.timeScale = cfg.TimeScale
		settings.SetTimeScale(cfg.TimeScale)
	}
	a.rng = rand.New(rand.NewPCG(a.seed, utils.SplitMix64(a.seed)))
	if err := a.setBackground(s.Background); err != nil {
		log.Printf("[App] Warning: %v (using snapshot background)", err)
		_ = a.setBackground(viewerCfg.Snapshot.Background)
	}

	start := cfg.Effect
	if start == "" {
		start = s.LastEffect
	}
	for i, name := range names {
		if name == start {
			a.index = i
			break
		}
	}
	if err := a.spawnPrimary(); err != nil {
		return nil, err
	}
	return a, nil
}

func loadViewerConfig(path string) (*config.ViewerConfig, error) {
	if path != "" {
		cfg, err := config.LoadViewerConfig(path)
		if err != nil {
			return nil, fmt.Errorf("查看器配置加载失败: %w", err)
		}
		log.Printf("[Config] 加载查看器配置: %s", path)
		return cfg, nil
	}
	data, err := embedded.ReadFile(embedded.ViewerConfigPath)
	if err != nil {
		return nil, fmt.Errorf("内置查看器配置读取失败: %w", err)
	}
	return config.ParseViewerConfig(data)
}

func (a *App) setBackground(hex string) error {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("invalid background %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	a.bg = color.RGBA{r, g, b, 255}
	return nil
}

// spawnPrimary 销毁全部实例并创建当前特效的主实例
func (a *App) spawnPrimary() error {
	for _, h := range a.manager.Handles() {
		a.manager.Destroy(h)
	}
	clear(a.extras)

	name := a.names[a.index]
	def, err := a.library.Get(name)
	if err != nil {
		return err
	}
	h, err := a.manager.Instantiate(def, game.Options{
		Seed:       a.seed,
		Emitting:   true,
		WorldSpace: a.worldSpace,
		Rotation:   mgl64.QuatIdent(),
	})
	if err != nil {
		return err
	}
	a.primary = h
	a.orbitAngle = 0
	a.accumulator = 0

	a.settings.SetLastEffect(name)
	a.settings.SetSeed(a.seed)
	a.saveSettings()
	log.Printf("[App] Previewing %s (seed=%d)", name, a.seed)
	return nil
}

// spawnExtra 在主实例附近追加一个实例，播放结束后由 ReapFinished 回收
func (a *App) spawnExtra() {
	def, err := a.library.Get(a.names[a.index])
	if err != nil {
		a.status = err.Error()
		return
	}
	angle := a.rng.Float64() * 2 * math.Pi
	dist := 1 + a.rng.Float64()*orbitRadius
	opts := game.Options{
		Seed:       a.rng.Uint64(),
		Emitting:   true,
		WorldSpace: true,
		Position:   mgl64.Vec3{math.Cos(angle) * dist, math.Sin(angle) * dist, 0},
		Rotation:   mgl64.QuatIdent(),
	}
	h, err := a.manager.Instantiate(def, opts)
	if err != nil {
		a.status = err.Error()
		return
	}
	a.extras[h] = true
}

func (a *App) saveSettings() {
	if err := a.settings.Save(); err != nil {
		log.Printf("[App] Warning: Failed to save settings: %v", err)
	}
}

// Update 更新模拟
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	if err := a.handleInput(); err != nil {
		return err
	}
	if a.paused {
		return nil
	}

	sim := a.cfg.Simulation
	a.accumulator += a.timeScale / float64(ebiten.TPS())
	steps := 0
	for a.accumulator >= sim.FixedDt && steps < sim.MaxSteps {
		if a.worldSpace {
			a.moveOrbit(sim.FixedDt)
		}
		if err := a.manager.AdvanceAll(context.Background(), sim.FixedDt, sim.Workers); err != nil {
			return err
		}
		a.accumulator -= sim.FixedDt
		steps++
	}
	// 落后太多时丢弃剩余时间
	if steps == sim.MaxSteps {
		a.accumulator = 0
	}

	a.recycle()
	return nil
}

// recycle 主实例播放结束后循环重放，追加的实例直接回收
func (a *App) recycle() {
	if inst, err := a.manager.Get(a.primary); err == nil && inst.Finished() {
		if err := inst.Reset(); err != nil {
			log.Printf("[App] Warning: Failed to restart: %v", err)
		}
	}
	if n := a.manager.ReapFinished(); n > 0 {
		for h := range a.extras {
			if _, err := a.manager.Get(h); err != nil {
				delete(a.extras, h)
			}
		}
	}
	// 持续发射的追加实例在 2 秒后停止发射，随后自然结束
	for h := range a.extras {
		if inst, err := a.manager.Get(h); err == nil {
			if t, _ := inst.Time(); t > 2 && inst.Emitting() {
				inst.SetEmitting(false)
			}
		}
	}
}

func (a *App) moveOrbit(dt float64) {
	inst, err := a.manager.Get(a.primary)
	if err != nil {
		return
	}
	a.orbitAngle += orbitSpeed * dt
	pos := mgl64.Vec3{math.Cos(a.orbitAngle) * orbitRadius, math.Sin(a.orbitAngle) * orbitRadius, 0}
	rot := mgl64.QuatRotate(a.orbitAngle, mgl64.Vec3{0, 0, 1})
	inst.SetTransform(pos, rot)
}

func (a *App) handleInput() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyRight):
		a.index = (a.index + 1) % len(a.names)
		return a.restart()
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft):
		a.index = (a.index - 1 + len(a.names)) % len(a.names)
		return a.restart()
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		return a.restart()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		a.seed = a.rng.Uint64()
		return a.restart()
	case inpututil.IsKeyJustPressed(ebiten.KeyE):
		if inst, err := a.manager.Get(a.primary); err == nil {
			inst.SetEmitting(!inst.Emitting())
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		a.paused = !a.paused
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual), inpututil.IsKeyJustPressed(ebiten.KeyNumpadAdd):
		a.changeTimeScale(2)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus), inpututil.IsKeyJustPressed(ebiten.KeyNumpadSubtract):
		a.changeTimeScale(0.5)
	case inpututil.IsKeyJustPressed(ebiten.KeyW):
		a.worldSpace = !a.worldSpace
		a.settings.SetWorldSpace(a.worldSpace)
		return a.restart()
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		a.spawnExtra()
	case inpututil.IsKeyJustPressed(ebiten.KeyF11):
		fullscreen := !ebiten.IsFullscreen()
		ebiten.SetFullscreen(fullscreen)
		a.settings.SetFullscreen(fullscreen)
		a.saveSettings()
	}

	// 相机
	cam := a.camera
	yaw, pitch, dist := cam.Yaw, cam.Pitch, cam.Distance
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		yaw -= 1.5
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		yaw += 1.5
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		pitch += 1
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		pitch -= 1
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		dist *= math.Pow(0.9, wy)
	}
	if yaw != cam.Yaw || pitch != cam.Pitch || dist != cam.Distance {
		cam.SetOrbit(yaw, pitch, dist)
	}
	return nil
}

func (a *App) restart() error {
	if err := a.spawnPrimary(); err != nil {
		a.status = err.Error()
		log.Printf("[App] Error: %v", err)
	}
	return nil
}

func (a *App) changeTimeScale(factor float64) {
	a.settings.SetTimeScale(a.timeScale * factor)
	a.timeScale = a.settings.GetSettings().TimeScale
	a.saveSettings()
}

// Draw 绘制全部实例
// 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(a.bg)
	a.renderer.Draw(screen, a.camera, a.instances())
	ebitenutil.DebugPrint(screen, a.statusText())
}

// instanceSet 合并多个实例的绘制记录，使深度排序跨实例生效
type instanceSet []*game.Instance

func (s instanceSet) Records(fn func(string, []components.DrawRecord)) {
	for _, inst := range s {
		inst.Records(fn)
	}
}

func (a *App) instances() instanceSet {
	handles := a.manager.Handles()
	set := make(instanceSet, 0, len(handles))
	for _, h := range handles {
		if inst, err := a.manager.Get(h); err == nil {
			set = append(set, inst)
		}
	}
	return set
}

func (a *App) statusText() string {
	var particles, emitters, dropped int
	for _, inst := range a.instances() {
		st := inst.Stats()
		particles += st.Particles
		emitters += st.Emitters
		dropped += st.Dropped
	}
	emitting := false
	var t float64
	if inst, err := a.manager.Get(a.primary); err == nil {
		emitting = inst.Emitting()
		t, _ = inst.Time()
	}
	text := fmt.Sprintf("[%d/%d] %s  seed=%d  t=%.2fs  x%.2f\n", a.index+1, len(a.names), a.names[a.index], a.seed, t, a.timeScale)
	text += fmt.Sprintf("instances=%d emitters=%d particles=%d dropped=%d draws=%d\n",
		a.manager.Len(), emitters, particles, dropped, a.renderer.DrawCalls)
	text += fmt.Sprintf("emitting=%v paused=%v world=%v  FPS=%.0f\n", emitting, a.paused, a.worldSpace, ebiten.ActualFPS())
	if a.status != "" {
		text += a.status + "\n"
	}
	return text
}

// Layout 返回逻辑屏幕尺寸，相机随窗口尺寸调整宽高比
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	a.camera.Resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// WindowConfig 返回窗口设置
func (a *App) WindowConfig() config.WindowConfig {
	return a.cfg.Window
}

// Fullscreen 返回设置中保存的全屏状态
func (a *App) Fullscreen() bool {
	return a.settings.GetSettings().Fullscreen
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}
