// Package render 把粒子绘制记录转换为屏幕图元
//
// 模拟层只产出 DrawRecord，本包负责：
//   - 轨道相机投影（mgl64）
//   - 按 billboard 模式展开四边形
//   - ebiten 批量绘制（查看器）和 x/image 光栅化（无窗口快照）
//
// 材质只是字符串引用，这里用程序生成的纯色图元代替贴图。
package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/pkg/config"
)

const (
	nearPlane = 0.05
	farPlane  = 1000.0
	maxPitch  = 89.0
)

var worldUp = mgl64.Vec3{0, 0, 1}

// Camera 绕目标点旋转的透视相机，世界坐标 Z 轴朝上
type Camera struct {
	Target mgl64.Vec3
	Eye    mgl64.Vec3

	Yaw      float64 // 度
	Pitch    float64 // 度
	Distance float64
	FOV      float64 // 垂直视场角（度）

	Width, Height int

	viewProj mgl64.Mat4
	right    mgl64.Vec3
	up       mgl64.Vec3
	forward  mgl64.Vec3
}

// NewCamera 根据配置创建相机
func NewCamera(cfg config.CameraConfig, width, height int) *Camera {
	c := &Camera{
		Target:   mgl64.Vec3{0, 0, cfg.TargetZ},
		Yaw:      cfg.Yaw,
		Pitch:    cfg.Pitch,
		Distance: cfg.Distance,
		FOV:      cfg.FOV,
		Width:    width,
		Height:   height,
	}
	c.update()
	return c
}

// SetOrbit 设置轨道参数，俯仰角限制在 ±89°
func (c *Camera) SetOrbit(yaw, pitch, distance float64) {
	c.Yaw = math.Mod(yaw, 360)
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, pitch))
	if distance > nearPlane {
		c.Distance = distance
	}
	c.update()
}

// Resize 更新视口尺寸
func (c *Camera) Resize(width, height int) {
	if width == c.Width && height == c.Height {
		return
	}
	c.Width, c.Height = width, height
	c.update()
}

func (c *Camera) update() {
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch))
	yaw, pitch := mgl64.DegToRad(c.Yaw), mgl64.DegToRad(c.Pitch)
	dir := mgl64.Vec3{
		math.Cos(pitch) * math.Cos(yaw),
		math.Cos(pitch) * math.Sin(yaw),
		math.Sin(pitch),
	}
	c.Eye = c.Target.Add(dir.Mul(c.Distance))

	c.forward = c.Target.Sub(c.Eye).Normalize()
	c.right = c.forward.Cross(worldUp).Normalize()
	c.up = c.right.Cross(c.forward)

	aspect := 1.0
	if c.Height > 0 {
		aspect = float64(c.Width) / float64(c.Height)
	}
	view := mgl64.LookAtV(c.Eye, c.Target, worldUp)
	proj := mgl64.Perspective(mgl64.DegToRad(c.FOV), aspect, nearPlane, farPlane)
	c.viewProj = proj.Mul4(view)
}

// Right 返回相机右方向（世界坐标）
func (c *Camera) Right() mgl64.Vec3 { return c.right }

// Up 返回相机上方向（世界坐标）
func (c *Camera) Up() mgl64.Vec3 { return c.up }

// Forward 返回视线方向（世界坐标）
func (c *Camera) Forward() mgl64.Vec3 { return c.forward }

// Project 把世界坐标投影到屏幕像素坐标
//
// 返回:
//   - x, y: 屏幕坐标（左上角为原点，y 向下）
//   - depth: 到相机的视线深度，越大越远
//   - ok: 点在近裁剪面之前时为 false
func (c *Camera) Project(p mgl64.Vec3) (x, y, depth float64, ok bool) {
	clip := c.viewProj.Mul4x1(p.Vec4(1))
	w := clip.W()
	if w <= nearPlane {
		return 0, 0, 0, false
	}
	nx, ny := clip.X()/w, clip.Y()/w
	x = (nx + 1) * 0.5 * float64(c.Width)
	y = (1 - ny) * 0.5 * float64(c.Height)
	return x, y, w, true
}
