package config

import (
	"fmt"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// ViewerConfig 查看器与快照工具的配置
//
// 配置文件位置: data/fxsim.yaml（内置默认值），可通过 -config 覆盖
type ViewerConfig struct {
	// Window 窗口设置（仅 ebiten 查看器）
	Window WindowConfig `yaml:"window"`

	// Camera 观察相机
	Camera CameraConfig `yaml:"camera"`

	// Simulation 固定步长模拟参数
	Simulation SimulationConfig `yaml:"simulation"`

	// Snapshot 无窗口快照参数（cmd/fxsnap）
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Materials 材质名 -> 预览样式
	// 材质只是字符串引用，查看器用纯色图元代替真实贴图
	Materials map[string]MaterialStyle `yaml:"materials"`

	// DefaultMaterial 未配置材质使用的样式
	DefaultMaterial MaterialStyle `yaml:"defaultMaterial"`
}

// WindowConfig 窗口设置
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// CameraConfig 观察相机（绕 Z 轴的轨道相机）
type CameraConfig struct {
	Distance float64 `yaml:"distance"` // 到目标点的距离
	Pitch    float64 `yaml:"pitch"`    // 俯仰角（度）
	Yaw      float64 `yaml:"yaw"`      // 偏航角（度）
	FOV      float64 `yaml:"fov"`      // 垂直视场角（度）
	TargetZ  float64 `yaml:"targetZ"`  // 目标点高度
}

// SimulationConfig 固定步长模拟参数
type SimulationConfig struct {
	FixedDt  float64 `yaml:"fixedDt"`  // 每步秒数
	MaxSteps int     `yaml:"maxSteps"` // 每帧最多追赶的步数
	Workers  int     `yaml:"workers"`  // AdvanceAll 并发数，0 = GOMAXPROCS
}

// SnapshotConfig 快照参数
type SnapshotConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Frames     int    `yaml:"frames"`     // 拍摄前推进的步数
	Background string `yaml:"background"` // 背景色 (#rrggbb)
}

// MaterialStyle 材质的预览样式
type MaterialStyle struct {
	Tint  string `yaml:"tint"`  // 与粒子颜色相乘 (#rrggbb)
	Shape string `yaml:"shape"` // "quad" 或 "disc"
	Blend string `yaml:"blend"` // "alpha" 或 "add"
}

// 预览图元形状与混合模式
const (
	ShapeQuad  = "quad"
	ShapeDisc  = "disc"
	BlendAlpha = "alpha"
	BlendAdd   = "add"
)

// LoadViewerConfig 从文件加载查看器配置
//
// 参数:
//   - path: 配置文件路径
//
// 返回:
//   - *ViewerConfig: 加载并验证后的配置
//   - error: 读取、解析或验证失败时返回错误
func LoadViewerConfig(path string) (*ViewerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read viewer config: %w", err)
	}
	return ParseViewerConfig(data)
}

// ParseViewerConfig 从 YAML 数据解析查看器配置
// 未出现的字段保持默认值
func ParseViewerConfig(data []byte) (*ViewerConfig, error) {
	config := DefaultViewerConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse viewer config: %w", err)
	}

	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid viewer config: %w", err)
	}
	return config, nil
}

// DefaultViewerConfig 返回内置默认配置
func DefaultViewerConfig() *ViewerConfig {
	return &ViewerConfig{
		Window: WindowConfig{Width: 1024, Height: 768, Title: "fxsim viewer"},
		Camera: CameraConfig{Distance: 12, Pitch: 20, Yaw: 35, FOV: 50, TargetZ: 2},
		Simulation: SimulationConfig{
			FixedDt:  1.0 / 60,
			MaxSteps: 8,
		},
		Snapshot: SnapshotConfig{Width: 512, Height: 512, Frames: 90, Background: "#101018"},
		DefaultMaterial: MaterialStyle{
			Tint:  "#ffffff",
			Shape: ShapeQuad,
			Blend: BlendAlpha,
		},
	}
}

// Validate 验证配置有效性
func (c *ViewerConfig) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Camera.Distance <= 0 {
		return fmt.Errorf("camera distance must be positive, got %.2f", c.Camera.Distance)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return fmt.Errorf("camera fov must be in (0, 180), got %.1f", c.Camera.FOV)
	}
	if c.Simulation.FixedDt <= 0 {
		return fmt.Errorf("simulation fixedDt must be positive, got %v", c.Simulation.FixedDt)
	}
	if c.Simulation.MaxSteps < 1 {
		return fmt.Errorf("simulation maxSteps must be >= 1, got %d", c.Simulation.MaxSteps)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("simulation workers must be >= 0, got %d", c.Simulation.Workers)
	}
	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 {
		return fmt.Errorf("snapshot size must be positive, got %dx%d", c.Snapshot.Width, c.Snapshot.Height)
	}
	if c.Snapshot.Frames < 0 {
		return fmt.Errorf("snapshot frames must be >= 0, got %d", c.Snapshot.Frames)
	}
	if _, err := colorful.Hex(c.Snapshot.Background); err != nil {
		return fmt.Errorf("snapshot background %q: %w", c.Snapshot.Background, err)
	}

	if err := c.DefaultMaterial.validate(); err != nil {
		return fmt.Errorf("defaultMaterial: %w", err)
	}
	for name := range c.Materials {
		if err := c.Material(name).validate(); err != nil {
			return fmt.Errorf("material '%s': %w", name, err)
		}
	}
	return nil
}

func (m MaterialStyle) validate() error {
	if _, err := colorful.Hex(m.Tint); err != nil {
		return fmt.Errorf("tint %q: %w", m.Tint, err)
	}
	switch m.Shape {
	case ShapeQuad, ShapeDisc:
	default:
		return fmt.Errorf("unknown shape %q", m.Shape)
	}
	switch m.Blend {
	case BlendAlpha, BlendAdd:
	default:
		return fmt.Errorf("unknown blend %q", m.Blend)
	}
	return nil
}

// Material 返回材质的预览样式，未配置时返回默认样式
// 材质条目中缺失的字段从默认样式继承
func (c *ViewerConfig) Material(name string) MaterialStyle {
	m, ok := c.Materials[name]
	if !ok {
		return c.DefaultMaterial
	}
	if m.Tint == "" {
		m.Tint = c.DefaultMaterial.Tint
	}
	if m.Shape == "" {
		m.Shape = c.DefaultMaterial.Shape
	}
	if m.Blend == "" {
		m.Blend = c.DefaultMaterial.Blend
	}
	return m
}

// TintColor 解析材质色调，解析失败时返回白色
func (m MaterialStyle) TintColor() colorful.Color {
	c, err := colorful.Hex(m.Tint)
	if err != nil {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	return c
}
