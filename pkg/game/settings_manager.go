package game

import (
	"fmt"
	"log"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// ViewerSettings 查看器的持久化设置
type ViewerSettings struct {
	LastEffect string  `yaml:"lastEffect"` // 上次预览的特效名
	Seed       uint64  `yaml:"seed"`       // 实例种子
	TimeScale  float64 `yaml:"timeScale"`  // 模拟速度倍率
	Background string  `yaml:"background"` // 背景色 (#rrggbb)
	WorldSpace bool    `yaml:"worldSpace"` // 是否启用世界空间环绕演示
	Fullscreen bool    `yaml:"fullscreen"` // 启动时是否全屏
}

// 时间倍率范围
const (
	MinTimeScale = 0.05
	MaxTimeScale = 8.0
)

// DefaultSettings 返回默认设置
func DefaultSettings() *ViewerSettings {
	return &ViewerSettings{
		Seed:       1,
		TimeScale:  1.0,
		Background: "#101018",
	}
}

// SettingsManager 设置管理器
// 负责查看器设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *ViewerSettings
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "viewer"
)

// NewSettingsManager 创建新的设置管理器实例
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式，仅内存设置）
//
// 返回：
//   - *SettingsManager: 设置管理器实例
//   - error: 保留给未来的初始化失败，加载失败不会返回错误
func NewSettingsManager(gdataManager *gdata.Manager) (*SettingsManager, error) {
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
	}
	if err := sm.Load(); err != nil {
		// 加载失败不是致命错误，使用默认设置
		log.Printf("[SettingsManager] Warning: Failed to load settings: %v (using defaults)", err)
	}
	return sm, nil
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或设置不存在，使用默认设置
func (sm *SettingsManager) Load() error {
	sm.settings = DefaultSettings()
	if sm.gdataManager == nil {
		return nil
	}
	if !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// 在默认值之上解码，缺失字段保持默认
	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	loaded.TimeScale = clampTimeScale(loaded.TimeScale)

	sm.settings = loaded
	log.Printf("[SettingsManager] Settings loaded successfully")
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	log.Printf("[SettingsManager] Settings saved successfully")
	return nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *ViewerSettings {
	return sm.settings
}

// SetLastEffect 记录当前预览的特效
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetLastEffect(name string) {
	sm.settings.LastEffect = name
}

// SetSeed 设置实例种子
func (sm *SettingsManager) SetSeed(seed uint64) {
	sm.settings.Seed = seed
}

// SetTimeScale 设置模拟速度，限制在 [MinTimeScale, MaxTimeScale] 内
func (sm *SettingsManager) SetTimeScale(scale float64) {
	sm.settings.TimeScale = clampTimeScale(scale)
}

// SetBackground 设置背景色
func (sm *SettingsManager) SetBackground(hex string) {
	sm.settings.Background = hex
}

// SetWorldSpace 设置世界空间模式
func (sm *SettingsManager) SetWorldSpace(enabled bool) {
	sm.settings.WorldSpace = enabled
}

// SetFullscreen 设置全屏模式
func (sm *SettingsManager) SetFullscreen(enabled bool) {
	sm.settings.Fullscreen = enabled
}

// clampTimeScale 将时间倍率限制在有效范围内，非正值回退为 1
func clampTimeScale(scale float64) float64 {
	if scale <= 0 {
		return 1.0
	}
	if scale < MinTimeScale {
		return MinTimeScale
	}
	if scale > MaxTimeScale {
		return MaxTimeScale
	}
	return scale
}
