//go:build !mobile

// 桌面构建下 mobile 包不含 ebitenmobile 入口和嵌入的特效数据，
// 查看器从根目录的 main.go 启动。
package mobile

// IsMobileBuild 报告当前是否为 ebitenmobile 绑定构建
func IsMobileBuild() bool { return false }
