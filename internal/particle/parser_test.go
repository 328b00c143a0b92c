package particle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

const minimalEffect = `
emitters:
  - emit:
      max_particles: 1
      particles_per_burst: 1
      burst_interval: 1.0
      max_bursts: 1
      shape:
        Sphere: {inner_radius: 0, outer_radius: 0}
    init:
      lifetime_min: 2
      lifetime_max: 2
`

const fullEffect = `
name: test_full
bounds:
  center: "0 0 1"
  extents: [2, 2, 2]
emitters:
  - position: "0 0 1"
    rotation: "0 0 0 1"
    emit:
      max_particles: 32
      particles_per_burst: 4
      burst_interval: 0.25
      shape:
        Ring: {origin: "0 0 0", axis: "0 0 1", inner_radius: 0.5, outer_radius: 1}
    init:
      lifetime_min: 0.5
      lifetime_max: 1.5
      angle_min: 0
      angle_max: 180
      angle_axis_spread: 10
      direction: "0 0 1"
      direction_spread: 30
      velocity_min: 1
      velocity_max: 2
      angular_velocity_min: -90
      angular_velocity_max: 90
      scale_min: 0.5
      scale_max: 1
    accel:
      gravity: "0 0 -9.8"
      linear_damp: 0.1
      angular_damp: 0.5
      radial_accel: 1
      orbit_accel: 2
      orbit_axis: "0 0 1"
      noise: {seed: 7, frequency: 0.5, force: 3}
    display:
      Sprite:
        material: fx/spark
        billboard: AlignVelocity
        sheet: {rows: 2, columns: 4, random_start: true, timescale: 2}
        size:
          - {time: 0, value: "0.1 0.1"}
          - {time: 1, value: 0.5}
        color:
          mode: Step
          keys:
            - {time: 0, value: "#ff8000"}
            - {time: 0.5, value: "255 0 0 128"}
    sub:
      - trigger: Stop
        emitter:
          emit:
            max_particles: 8
            particles_per_burst: 8
            burst_interval: 0
            max_bursts: 1
            shape: {Point: {}}
          init: {lifetime_min: 0.2, lifetime_max: 0.2}
          display: None
`

func TestParse_Minimal(t *testing.T) {
	def, err := Parse([]byte(minimalEffect), "minimal")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if def.Name != "minimal" {
		t.Errorf("Expected name 'minimal', got %q", def.Name)
	}
	if len(def.Emitters) != 1 {
		t.Fatalf("Expected 1 emitter, got %d", len(def.Emitters))
	}
	e := def.Emitters[0]
	if e.Emit.MaxBursts != 1 || !e.Emit.HasBurstCap() {
		t.Errorf("Expected burst cap 1, got %d", e.Emit.MaxBursts)
	}
	if _, ok := e.Emit.Shape.(SphereShape); !ok {
		t.Errorf("Expected SphereShape, got %T", e.Emit.Shape)
	}
	if e.Display != nil {
		t.Error("Display should default to None")
	}
	// 默认值
	if e.Init.Scale != (Range{1, 1}) {
		t.Errorf("Expected default scale [1 1], got %v", e.Init.Scale)
	}
	if e.Accel.Noise != nil {
		t.Error("Noise should default to nil")
	}
	if len(e.Sub) != 0 {
		t.Errorf("Expected no sub-emitters, got %d", len(e.Sub))
	}
}

func TestParse_Full(t *testing.T) {
	def, err := Parse([]byte(fullEffect), "ignored")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if def.Name != "test_full" {
		t.Errorf("Expected name from document, got %q", def.Name)
	}
	if def.Bounds.Extents[0] != 2 {
		t.Errorf("Expected bounds extents 2, got %v", def.Bounds.Extents)
	}

	e := def.Emitters[0]
	ring, ok := e.Emit.Shape.(RingShape)
	if !ok {
		t.Fatalf("Expected RingShape, got %T", e.Emit.Shape)
	}
	if ring.InnerRadius != 0.5 || ring.OuterRadius != 1 {
		t.Errorf("Unexpected ring radii %v/%v", ring.InnerRadius, ring.OuterRadius)
	}
	if e.Emit.HasBurstCap() {
		t.Error("Absent max_bursts should mean unlimited")
	}

	// 角度以度书写，内部存储为弧度
	if !approx(e.Init.DirectionSpread, 0.5235987755982988) {
		t.Errorf("Expected direction spread pi/6, got %v", e.Init.DirectionSpread)
	}
	if !approx(e.Init.AngularVelocity.Max, 1.5707963267948966) {
		t.Errorf("Expected angular velocity max pi/2, got %v", e.Init.AngularVelocity.Max)
	}

	if e.Accel.Noise == nil || e.Accel.Noise.Seed != 7 || e.Accel.Noise.Force != 3 {
		t.Errorf("Unexpected noise %+v", e.Accel.Noise)
	}

	s := e.Display
	if s == nil {
		t.Fatal("Expected Sprite display")
	}
	if s.Material != "fx/spark" || s.Billboard != BillboardAlignVelocity {
		t.Errorf("Unexpected sprite %q %v", s.Material, s.Billboard)
	}
	if s.Sheet == nil || s.Sheet.Frames() != 8 || !s.Sheet.RandomStart {
		t.Errorf("Unexpected sheet %+v", s.Sheet)
	}
	if got := s.Size.Evaluate(1); got[0] != 0.5 || got[1] != 0.5 {
		t.Errorf("Uniform size shorthand should expand to (0.5, 0.5), got %v", got)
	}
	// Step 模式：0.25 处仍为第一帧
	if got := s.Color.Evaluate(0.25); !approx(got[1], 128.0/255) {
		t.Errorf("Step curve should hold first key, got %v", got)
	}
	if got := s.Color.Evaluate(0.75); !approx(got[3], 128.0/255) {
		t.Errorf("Expected alpha 128/255 after second key, got %v", got)
	}

	if len(e.Sub) != 1 || e.Sub[0].Trigger != TriggerStop {
		t.Fatalf("Expected one Stop sub-emitter, got %+v", e.Sub)
	}
	if def.EmitterCount() != 2 {
		t.Errorf("Expected 2 emitters in tree, got %d", def.EmitterCount())
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		replace  [2]string
		wantPath string
	}{
		{"MissingMaxParticles", [2]string{"      max_particles: 1\n", ""}, "emitters[0].emit.max_particles"},
		{"ZeroCapacity", [2]string{"max_particles: 1", "max_particles: 0"}, "emitters[0].emit.max_particles"},
		{"NegativeInterval", [2]string{"burst_interval: 1.0", "burst_interval: -1"}, "emitters[0].emit.burst_interval"},
		{"ZeroMaxBursts", [2]string{"max_bursts: 1", "max_bursts: 0"}, "emitters[0].emit.max_bursts"},
		{"InnerExceedsOuter", [2]string{"inner_radius: 0, outer_radius: 0", "inner_radius: 2, outer_radius: 1"}, "emitters[0].emit.shape.Sphere.inner_radius"},
		{"NegativeRadius", [2]string{"outer_radius: 0", "outer_radius: -1"}, "emitters[0].emit.shape.Sphere.outer_radius"},
		{"UnknownShape", [2]string{"Sphere:", "Torus:"}, "emitters[0].emit.shape.Torus"},
		{"UnknownField", [2]string{"lifetime_max: 2", "lifetime_max: 2\n      colour: 1"}, "emitters[0].init.colour"},
		{"LifetimeRange", [2]string{"lifetime_min: 2", "lifetime_min: 3"}, "emitters[0].init.lifetime_min"},
		{"BadNumber", [2]string{"lifetime_max: 2", "lifetime_max: soon"}, "emitters[0].init.lifetime_max"},
		{"NaNLifetime", [2]string{"lifetime_min: 2", "lifetime_min: NaN"}, "emitters[0].init.lifetime_min"},
		{"InfLifetime", [2]string{"lifetime_max: 2", "lifetime_max: +Inf"}, "emitters[0].init.lifetime_max"},
		{"YAMLInfRadius", [2]string{"outer_radius: 0", "outer_radius: .inf"}, "emitters[0].emit.shape.Sphere.outer_radius"},
		{"NaNRadius", [2]string{"inner_radius: 0", "inner_radius: nan"}, "emitters[0].emit.shape.Sphere.inner_radius"},
		{"InfInterval", [2]string{"burst_interval: 1.0", "burst_interval: Inf"}, "emitters[0].emit.burst_interval"},
		{"NaNVector", [2]string{"lifetime_max: 2", "lifetime_max: 2\n      direction: \"0 NaN 1\""}, "emitters[0].init.direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(minimalEffect, tt.replace[0], tt.replace[1], 1)
			_, err := Parse([]byte(src), "bad")
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
			}
			found := false
			for _, p := range verrs.Paths() {
				if p == tt.wantPath {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error at %s, got %v", tt.wantPath, verrs.Paths())
			}
		})
	}
}

func TestParse_NonMonotonicCurve(t *testing.T) {
	src := minimalEffect + `    display:
      Sprite:
        material: m
        size: [{time: 0, value: 1}]
        color:
          - {time: 0.8, value: "255 255 255 255"}
          - {time: 0.2, value: "255 255 255 0"}
`
	_, err := Parse([]byte(src), "curve")
	if !errors.Is(err, ErrInvalidCurve) {
		t.Fatalf("Expected ErrInvalidCurve, got %v", err)
	}
	if !strings.Contains(err.Error(), "emitters[0].display.Sprite.color") {
		t.Errorf("Error should name the curve path, got %v", err)
	}
}

func TestParse_NestedSubPath(t *testing.T) {
	src := minimalEffect + `    sub:
      - trigger: Start
        emitter:
          emit: {max_particles: 1, particles_per_burst: 1, burst_interval: 0, shape: {Point: {}}}
          init: {lifetime_min: 1, lifetime_max: 1}
          sub:
            - trigger: Later
              emitter:
                emit: {max_particles: 1, particles_per_burst: 1, burst_interval: 0, shape: {Box: {extents: "1 -1 1"}}}
                init: {lifetime_min: 1, lifetime_max: 1}
`
	_, err := Parse([]byte(src), "nested")
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected ValidationErrors, got %v", err)
	}
	want := map[string]bool{
		"emitters[0].sub[0].emitter.sub[0].trigger":                           false,
		"emitters[0].sub[0].emitter.sub[0].emitter.emit.shape.Box.extents": false,
	}
	for _, p := range verrs.Paths() {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, seen := range want {
		if !seen {
			t.Errorf("Expected error at %s, got %v", p, verrs.Paths())
		}
	}
}

func TestParse_DeepNesting(t *testing.T) {
	// 构造深层嵌套的子发射器（flow 风格），验证解析路径完整
	const depth = 64
	node := "{emit: {max_particles: 1, particles_per_burst: 1, burst_interval: 0, shape: {Point: {}}}, init: {lifetime_min: 1, lifetime_max: 1}}"
	for i := 1; i < depth; i++ {
		node = "{emit: {max_particles: 1, particles_per_burst: 1, burst_interval: 0, shape: {Point: {}}}, " +
			"init: {lifetime_min: 1, lifetime_max: 1}, sub: [{trigger: Stop, emitter: " + node + "}]}"
	}
	def, err := Parse([]byte("emitters: ["+node+"]"), "deep")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := def.EmitterCount(); got != depth {
		t.Errorf("Expected %d emitters, got %d", depth, got)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse([]byte(""), "empty"); err == nil {
		t.Error("Expected error for empty document")
	}
	if _, err := Parse([]byte("emitters: []"), "none"); err == nil {
		t.Error("Expected error for effect without emitters")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "spark.yaml")
	if err := os.WriteFile(p, []byte(minimalEffect), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	def, err := ParseFile(p)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if def.Name != "spark" {
		t.Errorf("Expected name derived from file, got %q", def.Name)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoad_FS(t *testing.T) {
	fsys := fstest.MapFS{
		"effects/spark.yaml": {Data: []byte(minimalEffect)},
	}
	def, err := Load(fsys, "effects/spark")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if def.Name != "spark" {
		t.Errorf("Expected name 'spark', got %q", def.Name)
	}
}

// TestLoad_ShippedEffects 验证仓库自带的效果文件都能通过校验
func TestLoad_ShippedEffects(t *testing.T) {
	files, err := filepath.Glob("../../data/effects/*.yaml")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(files) == 0 {
		t.Skip("no shipped effects found")
	}
	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			if _, err := ParseFile(f); err != nil {
				t.Errorf("Shipped effect failed validation: %v", err)
			}
		})
	}
}
