package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"

	"github.com/decker502/fxsim/pkg/config"
)

// discSegments 圆形图元的多边形边数
const discSegments = 24

// Snapshot 无窗口光栅化器，把绘制记录渲染为 RGBA 图像
//
// 使用 x/image/vector 扫描转换四边形或圆形，alpha 混合直接交给
// Rasterizer.Draw，加法混合先光栅化覆盖率再逐像素累加。
type Snapshot struct {
	cfg    *config.ViewerConfig
	raster *vector.Rasterizer
	mask   *image.Alpha
	quads  []Quad
}

// NewSnapshot 创建光栅化器
func NewSnapshot(cfg *config.ViewerConfig) *Snapshot {
	return &Snapshot{cfg: cfg}
}

// Render 以 background 为底色渲染 src 当前的全部粒子
func (s *Snapshot) Render(src RecordSource, cam *Camera, background string) (*image.RGBA, error) {
	bg, err := colorful.Hex(background)
	if err != nil {
		return nil, fmt.Errorf("failed to parse background color %q: %w", background, err)
	}

	w, h := cam.Width, cam.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r, g, b := bg.RGB255()
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{r, g, b, 255}), image.Point{}, draw.Src)

	if s.raster == nil {
		s.raster = vector.NewRasterizer(w, h)
	}
	if s.mask == nil || s.mask.Bounds() != img.Bounds() {
		s.mask = image.NewAlpha(img.Bounds())
	}

	s.quads = CollectQuads(s.quads, src, cam, s.cfg)
	for i := range s.quads {
		s.drawQuad(img, &s.quads[i])
	}
	return img, nil
}

func (s *Snapshot) drawQuad(dst *image.RGBA, q *Quad) {
	if q.Color[3] <= 0 {
		return
	}
	bounds := s.path(q, dst.Bounds())
	if bounds.Empty() {
		return
	}

	if q.Style.Blend != config.BlendAdd {
		col := color.NRGBA{
			R: to8(q.Color[0]), G: to8(q.Color[1]), B: to8(q.Color[2]), A: to8(q.Color[3]),
		}
		s.raster.DrawOp = draw.Over
		s.raster.Draw(dst, bounds, image.NewUniform(col), image.Point{})
		return
	}

	// 加法混合：先得到覆盖率，再累加颜色
	s.raster.DrawOp = draw.Src
	s.raster.Draw(s.mask, bounds, image.Opaque, image.Point{})

	a := float64(q.Color[3])
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			m := float64(s.mask.AlphaAt(x, y).A) / 255
			if m == 0 {
				continue
			}
			k := m * a * 255
			c := dst.RGBAAt(x, y)
			c.R = addSat(c.R, float64(q.Color[0])*k)
			c.G = addSat(c.G, float64(q.Color[1])*k)
			c.B = addSat(c.B, float64(q.Color[2])*k)
			dst.SetRGBA(x, y, c)
		}
	}
}

// path 把四边形轮廓写入光栅化器，返回裁剪到画布的包围盒
//
// Rasterizer 的原点对应 Draw 的目标矩形左上角，因此轮廓坐标
// 相对包围盒平移，光栅化器尺寸也缩小到包围盒。
func (s *Snapshot) path(q *Quad, canvas image.Rectangle) image.Rectangle {
	var pts [discSegments][2]float64
	n := 0

	p := q.Pts
	if q.Style.Shape == config.ShapeDisc {
		// 内切于四边形的椭圆（仿射近似）
		cx := (p[0][0] + p[1][0] + p[2][0] + p[3][0]) / 4
		cy := (p[0][1] + p[1][1] + p[2][1] + p[3][1]) / 4
		ax, ay := (p[1][0]-p[0][0])/2, (p[1][1]-p[0][1])/2
		bx, by := (p[0][0]-p[2][0])/2, (p[0][1]-p[2][1])/2
		for i := 0; i < discSegments; i++ {
			sin, cos := math.Sincos(2 * math.Pi * float64(i) / discSegments)
			pts[n] = [2]float64{cx + ax*cos + bx*sin, cy + ay*cos + by*sin}
			n++
		}
	} else {
		// 左上 → 右上 → 右下 → 左下
		for _, idx := range [4]int{0, 1, 3, 2} {
			pts[n] = p[idx]
			n++
		}
	}

	poly := clipPolygon(pts[:n], canvas)
	if len(poly) < 3 {
		return image.Rectangle{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range poly {
		minX, minY = math.Min(minX, pt[0]), math.Min(minY, pt[1])
		maxX, maxY = math.Max(maxX, pt[0]), math.Max(maxY, pt[1])
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).Intersect(canvas)
	if r.Empty() {
		return r
	}

	s.raster.Reset(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for i, pt := range poly {
		x, y := float32(pt[0]-ox), float32(pt[1]-oy)
		if i == 0 {
			s.raster.MoveTo(x, y)
		} else {
			s.raster.LineTo(x, y)
		}
	}
	s.raster.ClosePath()
	return r
}

// clipPolygon 用 Sutherland-Hodgman 算法把凸多边形裁剪到画布内
// 光栅化器不接受超出其尺寸的坐标
func clipPolygon(in [][2]float64, canvas image.Rectangle) [][2]float64 {
	edges := [4]struct {
		axis  int
		value float64
		keep  func(v, edge float64) bool
	}{
		{0, float64(canvas.Min.X), func(v, e float64) bool { return v >= e }},
		{0, float64(canvas.Max.X), func(v, e float64) bool { return v <= e }},
		{1, float64(canvas.Min.Y), func(v, e float64) bool { return v >= e }},
		{1, float64(canvas.Max.Y), func(v, e float64) bool { return v <= e }},
	}

	out := append([][2]float64(nil), in...)
	for _, e := range edges {
		if len(out) == 0 {
			break
		}
		src := out
		out = make([][2]float64, 0, len(src)+2)
		prev := src[len(src)-1]
		for _, cur := range src {
			curIn, prevIn := e.keep(cur[e.axis], e.value), e.keep(prev[e.axis], e.value)
			if curIn != prevIn {
				t := (e.value - prev[e.axis]) / (cur[e.axis] - prev[e.axis])
				var p [2]float64
				p[e.axis] = e.value
				o := 1 - e.axis
				p[o] = prev[o] + t*(cur[o]-prev[o])
				out = append(out, p)
			}
			if curIn {
				out = append(out, cur)
			}
			prev = cur
		}
	}
	return out
}

func to8(v float32) uint8 {
	return uint8(math.Round(float64(v) * 255))
}

func addSat(c uint8, v float64) uint8 {
	return uint8(math.Min(255, float64(c)+math.Round(v)))
}

// WritePNG 编码图像为 PNG
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
