// Package embedded 提供嵌入数据的统一访问接口
//
// Go embed 指令只能嵌入当前包目录及其子目录的文件，
// 因此 embed.FS 变量声明在项目根目录（embed.go），
// 由 main 在启动时通过 Init() 注入。
//
// 所有路径以 "data/" 开头，例如 "data/effects/fireworks.yaml"。
package embedded

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	dataPrefix = "data/"

	// EffectsDir 内置特效目录
	EffectsDir = "data/effects"
	// ViewerConfigPath 内置默认查看器配置
	ViewerConfigPath = "data/fxsim.yaml"
)

var (
	dataFS      fs.FS
	initialized bool
)

// Init 注入嵌入的数据文件系统
// 必须在 main() 开始时、任何资源加载之前调用
func Init(data fs.FS) {
	dataFS = data
	initialized = data != nil
}

// IsInitialized 返回 embedded 包是否已初始化
func IsInitialized() bool {
	return initialized
}

// normalize 统一路径分隔符并校验前缀
func normalize(path string) (string, error) {
	if !initialized {
		return "", fmt.Errorf("embedded package not initialized, call Init() first")
	}
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	if path != "data" && !strings.HasPrefix(path, dataPrefix) {
		return "", fmt.Errorf("unknown resource path prefix: %s (must start with 'data/')", path)
	}
	return path, nil
}

// Open 打开嵌入文件
func Open(path string) (fs.File, error) {
	p, err := normalize(path)
	if err != nil {
		return nil, err
	}
	return dataFS.Open(p)
}

// ReadFile 读取嵌入文件内容
func ReadFile(path string) ([]byte, error) {
	p, err := normalize(path)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(dataFS, p)
}

// Exists 检查文件是否存在
func Exists(path string) bool {
	f, err := Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Glob 匹配嵌入文件
func Glob(pattern string) ([]string, error) {
	p, err := normalize(pattern)
	if err != nil {
		return nil, err
	}
	return fs.Glob(dataFS, p)
}

// Sub 返回指定目录的子文件系统
func Sub(dir string) (fs.FS, error) {
	p, err := normalize(dir)
	if err != nil {
		return nil, err
	}
	return fs.Sub(dataFS, p)
}

// Effects 返回内置特效目录的文件系统
func Effects() (fs.FS, error) {
	return Sub(EffectsDir)
}
