package render

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/fxsim/pkg/config"
)

const (
	// atlasCellPx 程序生成图集中每个单元的像素尺寸
	atlasCellPx = 32

	// maxQuadsPerBatch uint16 索引每次最多 65536 个顶点
	maxQuadsPerBatch = 65536 / 4
)

// additiveBlend 加法混合（用于发光效果，如火花、火焰）
var additiveBlend = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorSourceAlpha,
	BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
	BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

type atlasKey struct {
	shape         string
	columns, rows int
}

// Renderer 使用 ebiten.DrawTriangles 批量绘制粒子四边形
//
// 顶点和索引数组在帧之间复用，避免每帧分配。
type Renderer struct {
	cfg *config.ViewerConfig

	atlases  map[atlasKey]*ebiten.Image
	quads    []Quad
	vertices []ebiten.Vertex
	indices  []uint16

	// DrawCalls 上一帧的 DrawTriangles 调用次数
	DrawCalls int
}

// NewRenderer 创建渲染器
func NewRenderer(cfg *config.ViewerConfig) *Renderer {
	return &Renderer{
		cfg:      cfg,
		atlases:  make(map[atlasKey]*ebiten.Image),
		vertices: make([]ebiten.Vertex, 0, 4096),
		indices:  make([]uint16, 0, 6144),
	}
}

// Draw 绘制 src 的全部粒子
//
// 四边形先按深度排序，再把相邻且共享图集和混合模式的四边形合并为一个批次，
// 因此远近顺序在批次之间得以保留。
func (r *Renderer) Draw(screen *ebiten.Image, cam *Camera, src RecordSource) {
	r.DrawCalls = 0
	r.quads = CollectQuads(r.quads, src, cam, r.cfg)

	start := 0
	for i := 1; i <= len(r.quads); i++ {
		if i < len(r.quads) && sameBatch(&r.quads[start], &r.quads[i]) && i-start < maxQuadsPerBatch {
			continue
		}
		r.drawBatch(screen, r.quads[start:i])
		start = i
	}
}

func sameBatch(a, b *Quad) bool {
	return a.Style.Shape == b.Style.Shape && a.Style.Blend == b.Style.Blend &&
		a.Columns == b.Columns && a.Rows == b.Rows
}

func (r *Renderer) drawBatch(screen *ebiten.Image, batch []Quad) {
	if len(batch) == 0 {
		return
	}
	q := &batch[0]
	atlas := r.atlas(q.Style.Shape, q.Columns, q.Rows)
	b := atlas.Bounds()

	r.vertices = r.vertices[:0]
	r.indices = r.indices[:0]
	for i := range batch {
		r.vertices, r.indices = AppendQuadVertices(r.vertices, r.indices, &batch[i], b.Dx(), b.Dy())
	}

	op := &ebiten.DrawTrianglesOptions{}
	op.AntiAlias = true
	if q.Style.Blend == config.BlendAdd {
		op.Blend = additiveBlend
	}
	screen.DrawTriangles(r.vertices, r.indices, atlas, op)
	r.DrawCalls++
}

// AppendQuadVertices 追加一个四边形的 4 个顶点和 6 个索引
//
// 顶点顺序：左上、右上、左下、右下
// 三角形 1: 左上、右上、左下
// 三角形 2: 右上、右下、左下
func AppendQuadVertices(vs []ebiten.Vertex, is []uint16, q *Quad, atlasW, atlasH int) ([]ebiten.Vertex, []uint16) {
	w, h := float64(atlasW), float64(atlasH)
	uv := [4][2]float64{
		{q.U0 * w, q.V0 * h},
		{q.U1 * w, q.V0 * h},
		{q.U0 * w, q.V1 * h},
		{q.U1 * w, q.V1 * h},
	}

	base := uint16(len(vs))
	for i := 0; i < 4; i++ {
		vs = append(vs, ebiten.Vertex{
			DstX:   float32(q.Pts[i][0]),
			DstY:   float32(q.Pts[i][1]),
			SrcX:   float32(uv[i][0]),
			SrcY:   float32(uv[i][1]),
			ColorR: q.Color[0],
			ColorG: q.Color[1],
			ColorB: q.Color[2],
			ColorA: q.Color[3],
		})
	}
	is = append(is,
		base+0, base+1, base+2, // 第一个三角形
		base+1, base+3, base+2, // 第二个三角形
	)
	return vs, is
}

// atlas 返回 (形状, 行列) 对应的图集，首次使用时生成
func (r *Renderer) atlas(shape string, columns, rows int) *ebiten.Image {
	if columns < 1 {
		columns = 1
	}
	if rows < 1 {
		rows = 1
	}
	key := atlasKey{shape: shape, columns: columns, rows: rows}
	if img, ok := r.atlases[key]; ok {
		return img
	}
	img := ebiten.NewImageFromImage(AtlasImage(shape, columns, rows, atlasCellPx))
	r.atlases[key] = img
	return img
}

// AtlasImage 生成 columns×rows 的白色图元图集
//
// 每个单元绘制相同的形状，单元之间留 1 像素透明边以避免采样串色。
// disc 为边缘柔化的圆，quad 为实心方块。
func AtlasImage(shape string, columns, rows, cellPx int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, columns*cellPx, rows*cellPx))
	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			ox, oy := col*cellPx, row*cellPx
			for y := 1; y < cellPx-1; y++ {
				for x := 1; x < cellPx-1; x++ {
					a := 1.0
					if shape == config.ShapeDisc {
						a = discAlpha(x, y, cellPx)
					}
					v := uint8(math.Round(a * 255))
					// 预乘 alpha 的白色
					img.SetRGBA(ox+x, oy+y, color.RGBA{v, v, v, v})
				}
			}
		}
	}
	return img
}

// discAlpha 圆心到边缘线性衰减的覆盖率
func discAlpha(x, y, cellPx int) float64 {
	c := float64(cellPx) / 2
	r := c - 1
	d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c) / r
	if d >= 1 {
		return 0
	}
	// 内部 60% 实心，外圈线性衰减
	if d <= 0.6 {
		return 1
	}
	return (1 - d) / 0.4
}
