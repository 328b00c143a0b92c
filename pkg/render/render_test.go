package render

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
	"github.com/decker502/fxsim/pkg/config"
)

// fakeSource 以固定材质返回一组绘制记录
type fakeSource struct {
	material string
	records  []components.DrawRecord
}

func (f fakeSource) Records(fn func(string, []components.DrawRecord)) {
	if len(f.records) > 0 {
		fn(f.material, f.records)
	}
}

func testCamera(w, h int) *Camera {
	return NewCamera(config.CameraConfig{Distance: 10, FOV: 60}, w, h)
}

func whiteRecord(pos mgl64.Vec3) components.DrawRecord {
	return components.DrawRecord{
		Position:  pos,
		Size:      mgl64.Vec2{2, 2},
		Color:     mgl64.Vec4{1, 1, 1, 1},
		Columns:   1,
		Rows:      1,
		Billboard: particle.BillboardFaceCamera,
	}
}

func TestCamera_Basis(t *testing.T) {
	cam := testCamera(100, 100)
	if !vecNear(cam.Eye, mgl64.Vec3{10, 0, 0}, 1e-9) {
		t.Errorf("Eye = %v, want (10,0,0)", cam.Eye)
	}
	if !vecNear(cam.Right(), mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("Right = %v, want (0,1,0)", cam.Right())
	}
	if !vecNear(cam.Up(), mgl64.Vec3{0, 0, 1}, 1e-9) {
		t.Errorf("Up = %v, want (0,0,1)", cam.Up())
	}
}

func TestCamera_Project(t *testing.T) {
	cam := testCamera(100, 80)

	x, y, depth, ok := cam.Project(mgl64.Vec3{})
	if !ok || math.Abs(x-50) > 1e-9 || math.Abs(y-40) > 1e-9 {
		t.Errorf("Target should project to the viewport center, got (%v,%v) ok=%v", x, y, ok)
	}
	if math.Abs(depth-10) > 1e-9 {
		t.Errorf("Depth = %v, want 10", depth)
	}

	if x, _, _, _ := cam.Project(mgl64.Vec3{0, 1, 0}); x <= 50 {
		t.Errorf("Point along camera right should project right of center, x=%v", x)
	}
	if _, y, _, _ := cam.Project(mgl64.Vec3{0, 0, 1}); y >= 40 {
		t.Errorf("Point above target should project above center, y=%v", y)
	}
	if _, _, _, ok := cam.Project(mgl64.Vec3{20, 0, 0}); ok {
		t.Error("Point behind the camera should not project")
	}
}

func TestCamera_SetOrbitClampsPitch(t *testing.T) {
	cam := testCamera(10, 10)
	cam.SetOrbit(400, 120, 5)
	if cam.Pitch != maxPitch {
		t.Errorf("Pitch = %v, want %v", cam.Pitch, maxPitch)
	}
	if cam.Yaw != 40 {
		t.Errorf("Yaw = %v, want 40", cam.Yaw)
	}
	if math.Abs(cam.Eye.Sub(cam.Target).Len()-5) > 1e-9 {
		t.Errorf("Distance not applied, eye=%v", cam.Eye)
	}
}

func TestCellUV(t *testing.T) {
	tests := []struct {
		cell, cols, rows int
		u0, v0, u1, v1   float64
	}{
		{0, 1, 1, 0, 0, 1, 1},
		{5, 4, 2, 0.25, 0.5, 0.5, 1},
		{9, 4, 2, 0.25, 0, 0.5, 0.5}, // 超出范围时取模
		{0, 0, 0, 0, 0, 1, 1},
	}
	for _, tt := range tests {
		u0, v0, u1, v1 := CellUV(tt.cell, tt.cols, tt.rows)
		if u0 != tt.u0 || v0 != tt.v0 || u1 != tt.u1 || v1 != tt.v1 {
			t.Errorf("CellUV(%d,%d,%d) = (%v,%v,%v,%v), want (%v,%v,%v,%v)",
				tt.cell, tt.cols, tt.rows, u0, v0, u1, v1, tt.u0, tt.v0, tt.u1, tt.v1)
		}
	}
}

func TestBillboardAxes(t *testing.T) {
	cam := testCamera(100, 100)
	tests := []struct {
		name      string
		rec       components.DrawRecord
		wantRight mgl64.Vec3
		wantUp    mgl64.Vec3
	}{
		{
			name:      "FaceCamera",
			rec:       components.DrawRecord{Billboard: particle.BillboardFaceCamera},
			wantRight: mgl64.Vec3{0, 1, 0},
			wantUp:    mgl64.Vec3{0, 0, 1},
		},
		{
			name:      "FaceCameraRotated",
			rec:       components.DrawRecord{Billboard: particle.BillboardFaceCamera, Rotation: math.Pi / 2},
			wantRight: mgl64.Vec3{0, 0, 1},
			wantUp:    mgl64.Vec3{0, -1, 0},
		},
		{
			name:      "AlignVelocity",
			rec:       components.DrawRecord{Billboard: particle.BillboardAlignVelocity, Velocity: mgl64.Vec3{0, 3, 0}, Rotation: 1},
			wantRight: mgl64.Vec3{0, 0, -1},
			wantUp:    mgl64.Vec3{0, 1, 0},
		},
		{
			name:      "AlignVelocityZero",
			rec:       components.DrawRecord{Billboard: particle.BillboardAlignVelocity},
			wantRight: mgl64.Vec3{0, 1, 0},
			wantUp:    mgl64.Vec3{0, 0, 1},
		},
		{
			name:      "AlignVertical",
			rec:       components.DrawRecord{Billboard: particle.BillboardAlignVertical},
			wantRight: mgl64.Vec3{0, 1, 0},
			wantUp:    mgl64.Vec3{0, 0, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			right, up := BillboardAxes(&tt.rec, cam)
			if !vecNear(right, tt.wantRight, 1e-9) || !vecNear(up, tt.wantUp, 1e-9) {
				t.Errorf("axes = %v / %v, want %v / %v", right, up, tt.wantRight, tt.wantUp)
			}
		})
	}

	// None 模式：平面垂直于旋转轴
	rec := components.DrawRecord{Billboard: particle.BillboardNone, Axis: mgl64.Vec3{0, 0, 1}}
	right, up := BillboardAxes(&rec, cam)
	if math.Abs(right.Dot(rec.Axis)) > 1e-9 || math.Abs(up.Dot(rec.Axis)) > 1e-9 {
		t.Errorf("None billboard axes %v / %v should be perpendicular to the axis", right, up)
	}
}

func TestBuildQuad(t *testing.T) {
	cam := testCamera(100, 100)
	rec := whiteRecord(mgl64.Vec3{})
	rec.Color = mgl64.Vec4{1, 0.5, 2, 0.5}
	style := config.MaterialStyle{Tint: "#ff0000", Shape: config.ShapeQuad, Blend: config.BlendAlpha}

	q, ok := BuildQuad(&rec, cam, style)
	if !ok {
		t.Fatal("BuildQuad should succeed for a visible record")
	}
	// 左上、右上、左下、右下
	if !(q.Pts[0][0] < q.Pts[1][0] && q.Pts[0][1] < q.Pts[2][1] && q.Pts[3][0] > q.Pts[2][0]) {
		t.Errorf("Unexpected corner layout: %v", q.Pts)
	}
	if q.Color != [4]float32{1, 0, 0, 0.5} {
		t.Errorf("Color = %v, want tinted and clamped (1,0,0,0.5)", q.Color)
	}

	rec.Position = mgl64.Vec3{30, 0, 0}
	if _, ok := BuildQuad(&rec, cam, style); ok {
		t.Error("Record behind the camera should be culled")
	}
}

func TestCollectQuads_SortedBackToFront(t *testing.T) {
	cam := testCamera(100, 100)
	src := fakeSource{material: "fx/test", records: []components.DrawRecord{
		whiteRecord(mgl64.Vec3{3, 0, 0}),  // 近
		whiteRecord(mgl64.Vec3{-3, 0, 0}), // 远
		whiteRecord(mgl64.Vec3{0, 0, 0}),
	}}
	quads := CollectQuads(nil, src, cam, config.DefaultViewerConfig())
	if len(quads) != 3 {
		t.Fatalf("Expected 3 quads, got %d", len(quads))
	}
	for i := 1; i < len(quads); i++ {
		if quads[i].Depth > quads[i-1].Depth {
			t.Errorf("Quads not sorted back to front: %v then %v", quads[i-1].Depth, quads[i].Depth)
		}
	}
}

func TestAppendQuadVertices(t *testing.T) {
	q := Quad{
		Pts:   [4][2]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}},
		U0:    0.5,
		U1:    1,
		V1:    0.5,
		Color: [4]float32{1, 1, 1, 1},
	}
	var vs []ebiten.Vertex
	var is []uint16
	vs, is = AppendQuadVertices(vs, is, &q, 64, 32)
	vs, is = AppendQuadVertices(vs, is, &q, 64, 32)

	if len(vs) != 8 || len(is) != 12 {
		t.Fatalf("Expected 8 vertices / 12 indices, got %d / %d", len(vs), len(is))
	}
	want := []uint16{0, 1, 2, 1, 3, 2, 4, 5, 6, 5, 7, 6}
	for i := range want {
		if is[i] != want[i] {
			t.Fatalf("indices = %v, want %v", is, want)
		}
	}
	if vs[0].SrcX != 32 || vs[3].SrcX != 64 || vs[3].SrcY != 16 {
		t.Errorf("Unexpected source coordinates %v / %v", vs[0], vs[3])
	}
	if vs[1].DstX != 10 || vs[2].DstY != 10 {
		t.Errorf("Unexpected destination coordinates %v / %v", vs[1], vs[2])
	}
}

func TestAtlasImage(t *testing.T) {
	img := AtlasImage(config.ShapeDisc, 2, 1, 16)
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 16 {
		t.Fatalf("Atlas size = %v, want 32x16", img.Bounds())
	}
	for _, ox := range []int{0, 16} {
		if a := img.RGBAAt(ox+8, 8).A; a != 255 {
			t.Errorf("Disc center alpha = %d, want 255", a)
		}
		if a := img.RGBAAt(ox+1, 1).A; a != 0 {
			t.Errorf("Disc corner alpha = %d, want 0", a)
		}
	}
	quad := AtlasImage(config.ShapeQuad, 1, 1, 8)
	if quad.RGBAAt(0, 0).A != 0 || quad.RGBAAt(1, 1).A != 255 {
		t.Error("Quad atlas should be solid with a transparent 1px border")
	}
}

func TestSnapshot_Render(t *testing.T) {
	cfg := config.DefaultViewerConfig()
	cfg.Materials = map[string]config.MaterialStyle{
		"fx/add": {Blend: config.BlendAdd},
	}
	cam := testCamera(64, 64)
	snap := NewSnapshot(cfg)

	// 空场景只有背景色
	img, err := snap.Render(fakeSource{}, cam, "#102030")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if c := img.RGBAAt(32, 32); c.R != 0x10 || c.G != 0x20 || c.B != 0x30 || c.A != 255 {
		t.Errorf("Background = %v, want #102030", c)
	}

	for _, material := range []string{"fx/alpha", "fx/add"} {
		t.Run(material, func(t *testing.T) {
			src := fakeSource{material: material, records: []components.DrawRecord{whiteRecord(mgl64.Vec3{})}}
			img, err := snap.Render(src, cam, "#102030")
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if c := img.RGBAAt(32, 32); c.R != 255 || c.G != 255 || c.B != 255 {
				t.Errorf("Center pixel = %v, want white", c)
			}
			if c := img.RGBAAt(1, 1); c.R != 0x10 || c.B != 0x30 {
				t.Errorf("Corner pixel = %v, want background", c)
			}
		})
	}
}

func TestSnapshot_PartiallyOffscreen(t *testing.T) {
	cam := testCamera(32, 32)
	rec := whiteRecord(mgl64.Vec3{0, 6, 0})
	rec.Size = mgl64.Vec2{4, 4}
	img, err := NewSnapshot(config.DefaultViewerConfig()).Render(fakeSource{material: "m", records: []components.DrawRecord{rec}}, cam, "#000000")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if c := img.RGBAAt(31, 16); c.R != 255 {
		t.Errorf("Pixel at right edge should be covered, got %v", c)
	}
	if c := img.RGBAAt(0, 16); c.R != 0 {
		t.Errorf("Pixel at left edge should be background, got %v", c)
	}
}

func TestSnapshot_BadBackground(t *testing.T) {
	if _, err := NewSnapshot(config.DefaultViewerConfig()).Render(fakeSource{}, testCamera(8, 8), "black"); err == nil {
		t.Error("Expected error for invalid background")
	}
}

func TestClipPolygon(t *testing.T) {
	canvas := image.Rect(0, 0, 10, 10)
	square := [][2]float64{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}}
	got := clipPolygon(square, canvas)
	if len(got) < 3 {
		t.Fatalf("Expected a clipped polygon, got %v", got)
	}
	for _, p := range got {
		if p[0] < 0 || p[0] > 10 || p[1] < 0 || p[1] > 10 {
			t.Errorf("Point %v outside the canvas", p)
		}
	}

	outside := [][2]float64{{20, 20}, {30, 20}, {30, 30}}
	if got := clipPolygon(outside, canvas); len(got) != 0 {
		t.Errorf("Polygon outside the canvas should vanish, got %v", got)
	}
}

func TestWritePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("Decoded bounds %v, want %v", decoded.Bounds(), img.Bounds())
	}
}

// vecNear 逐分量比较绝对误差
func vecNear[V ~[2]float64 | ~[3]float64 | ~[4]float64](a, b V, eps float64) bool {
	for i := 0; i < len(a); i++ {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
