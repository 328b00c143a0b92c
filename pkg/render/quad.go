package render

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/config"
)

// RecordSource 提供每个 Sprite 发射器的绘制记录
// game.Instance 实现了该接口
type RecordSource interface {
	Records(fn func(material string, records []components.DrawRecord))
}

// Quad 投影到屏幕上的一个粒子四边形
type Quad struct {
	// 四个角的屏幕坐标：左上、右上、左下、右下
	Pts   [4][2]float64
	Depth float64

	// 图集单元的纹理坐标，范围 [0,1]
	U0, V0, U1, V1 float64

	Color   [4]float32 // 粒子颜色乘以材质色调，直通 alpha
	Style   config.MaterialStyle
	Columns int
	Rows    int
}

// CellUV 返回图集单元的归一化纹理坐标，按行优先排列
func CellUV(cell, columns, rows int) (u0, v0, u1, v1 float64) {
	if columns < 1 {
		columns = 1
	}
	if rows < 1 {
		rows = 1
	}
	frames := columns * rows
	cell = ((cell % frames) + frames) % frames
	col := cell % columns
	row := cell / columns
	cw, ch := 1/float64(columns), 1/float64(rows)
	return float64(col) * cw, float64(row) * ch, float64(col+1) * cw, float64(row+1) * ch
}

// BillboardAxes 返回粒子平面的两个单位轴（右、上），已包含平面内旋转
//
// 各模式:
//   - FaceCamera: 相机右/上方向
//   - AlignVertical: 上方向固定为世界 Z 轴
//   - AlignVelocity: 上方向沿速度，速度为零时退化为 FaceCamera
//   - None: 垂直于粒子旋转轴的世界平面
func BillboardAxes(rec *components.DrawRecord, cam *Camera) (right, up mgl64.Vec3) {
	switch rec.Billboard {
	case particle.BillboardAlignVelocity:
		if rec.Velocity.Len() > 0 {
			up = rec.Velocity.Normalize()
			right = cam.Forward().Cross(up)
			if right.Len() > 1e-9 {
				// 速度已决定朝向，不再叠加旋转
				return right.Normalize(), up
			}
		}
		right, up = cam.Right(), cam.Up()
	case particle.BillboardAlignVertical:
		right, up = cam.Right(), worldUp
	case particle.BillboardNone:
		right, up = particle.Basis(rec.Axis)
	default:
		right, up = cam.Right(), cam.Up()
	}

	if rec.Rotation != 0 {
		s, c := math.Sincos(rec.Rotation)
		right, up = right.Mul(c).Add(up.Mul(s)), up.Mul(c).Sub(right.Mul(s))
	}
	return right, up
}

// BuildQuad 把一条绘制记录展开并投影为屏幕四边形
// 任一角落在相机后方时返回 false
func BuildQuad(rec *components.DrawRecord, cam *Camera, style config.MaterialStyle) (Quad, bool) {
	right, up := BillboardAxes(rec, cam)
	hx := right.Mul(rec.Size.X() * 0.5)
	hy := up.Mul(rec.Size.Y() * 0.5)
	c := rec.Position

	corners := [4]mgl64.Vec3{
		c.Sub(hx).Add(hy), // 左上
		c.Add(hx).Add(hy), // 右上
		c.Sub(hx).Sub(hy), // 左下
		c.Add(hx).Sub(hy), // 右下
	}

	q := Quad{Style: style, Columns: rec.Columns, Rows: rec.Rows}
	for i, p := range corners {
		x, y, _, ok := cam.Project(p)
		if !ok {
			return Quad{}, false
		}
		q.Pts[i] = [2]float64{x, y}
	}
	_, _, depth, ok := cam.Project(c)
	if !ok {
		return Quad{}, false
	}
	q.Depth = depth

	q.U0, q.V0, q.U1, q.V1 = CellUV(rec.Cell, rec.Columns, rec.Rows)
	q.Color = tintColor(rec.Color, style.TintColor())
	return q, true
}

// tintColor 粒子颜色逐通道乘以材质色调并截断到 [0,1]
func tintColor(c mgl64.Vec4, tint colorful.Color) [4]float32 {
	clamp := func(v float64) float32 {
		return float32(math.Max(0, math.Min(1, v)))
	}
	return [4]float32{
		clamp(c[0] * tint.R),
		clamp(c[1] * tint.G),
		clamp(c[2] * tint.B),
		clamp(c[3]),
	}
}

// CollectQuads 投影 src 的全部绘制记录
//
// 返回的四边形按深度从远到近排序（画家算法），深度相同时保持记录顺序。
func CollectQuads(dst []Quad, src RecordSource, cam *Camera, cfg *config.ViewerConfig) []Quad {
	dst = dst[:0]
	src.Records(func(material string, records []components.DrawRecord) {
		style := cfg.Material(material)
		for i := range records {
			if q, ok := BuildQuad(&records[i], cam, style); ok {
				dst = append(dst, q)
			}
		}
	})
	sort.SliceStable(dst, func(i, j int) bool { return dst[i].Depth > dst[j].Depth })
	return dst
}
