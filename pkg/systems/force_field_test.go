package systems

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
)

func TestForceField_Contributors(t *testing.T) {
	tests := []struct {
		name  string
		accel particle.Acceleration
		p     components.Particle
		want  mgl64.Vec3
	}{
		{
			name:  "Gravity",
			accel: particle.Acceleration{Gravity: mgl64.Vec3{0, 0, -9.8}},
			want:  mgl64.Vec3{0, 0, -9.8},
		},
		{
			name:  "LinearDamp",
			accel: particle.Acceleration{LinearDamp: 0.5},
			p:     components.Particle{Velocity: mgl64.Vec3{4, 0, -2}},
			want:  mgl64.Vec3{-2, 0, 1},
		},
		{
			name:  "Radial",
			accel: particle.Acceleration{RadialAccel: 3},
			p:     components.Particle{Position: mgl64.Vec3{2, 0, 0}},
			want:  mgl64.Vec3{3, 0, 0},
		},
		{
			name:  "RadialAtOrigin",
			accel: particle.Acceleration{RadialAccel: 3},
			want:  mgl64.Vec3{},
		},
		{
			name:  "Orbit",
			accel: particle.Acceleration{OrbitAccel: 2, OrbitAxis: mgl64.Vec3{0, 0, 1}},
			p:     components.Particle{Position: mgl64.Vec3{5, 0, 0}},
			want:  mgl64.Vec3{0, 2, 0},
		},
		{
			// 粒子位于轴上时切向未定义
			name:  "OrbitOnAxis",
			accel: particle.Acceleration{OrbitAccel: 2, OrbitAxis: mgl64.Vec3{0, 0, 1}},
			p:     components.Particle{Position: mgl64.Vec3{0, 0, 3}},
			want:  mgl64.Vec3{},
		},
		{
			name: "Combined",
			accel: particle.Acceleration{
				Gravity:     mgl64.Vec3{0, 0, -1},
				RadialAccel: -1,
				OrbitAccel:  1,
				OrbitAxis:   mgl64.Vec3{0, 0, 1},
			},
			p:    components.Particle{Position: mgl64.Vec3{1, 0, 0}},
			want: mgl64.Vec3{-1, 1, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ff := NewForceField(tt.accel)
			got := ff.Acceleration(&tt.p, mgl64.Vec3{}, 0)
			if !vecNear(got, tt.want, 1e-9) {
				t.Errorf("Acceleration = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForceField_RadialRelativeToOrigin(t *testing.T) {
	ff := NewForceField(particle.Acceleration{RadialAccel: 1})
	p := components.Particle{Position: mgl64.Vec3{10, 3, 0}}
	got := ff.Acceleration(&p, mgl64.Vec3{10, 0, 0}, 0)
	if !vecNear(got, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("Radial acceleration about (10,0,0) = %v, want (0,1,0)", got)
	}
}

func TestForceField_Noise(t *testing.T) {
	accel := particle.Acceleration{Noise: &particle.Noise{Seed: 42, Frequency: 0.7, Force: 2.5}}
	a := NewForceField(accel)
	b := NewForceField(accel)

	p := components.Particle{Position: mgl64.Vec3{0.3, -1.2, 4.1}, Seed: 12345}
	va := a.Acceleration(&p, mgl64.Vec3{}, 1.5)
	vb := b.Acceleration(&p, mgl64.Vec3{}, 1.5)
	if va != vb {
		t.Fatalf("Noise is not deterministic: %v vs %v", va, vb)
	}
	if l := va.Len(); math.Abs(l-2.5) > 1e-9 {
		t.Errorf("Noise magnitude = %v, want 2.5", l)
	}

	// 不同粒子种子采样噪声场的不同位置
	q := p
	q.Seed = 54321
	if vq := a.Acceleration(&q, mgl64.Vec3{}, 1.5); vq == va {
		t.Error("Particles with different seeds should see different noise")
	}
}

func TestForceField_ZeroNoiseForceDisabled(t *testing.T) {
	ff := NewForceField(particle.Acceleration{Noise: &particle.Noise{Seed: 1, Frequency: 1, Force: 0}})
	if ff.noise != nil {
		t.Error("Zero noise force should not allocate a noise generator")
	}
	p := components.Particle{Position: mgl64.Vec3{1, 2, 3}}
	if got := ff.Acceleration(&p, mgl64.Vec3{}, 0); got != (mgl64.Vec3{}) {
		t.Errorf("Expected zero acceleration, got %v", got)
	}
}

func TestForceField_DampAngular(t *testing.T) {
	tests := []struct {
		name string
		damp float64
		dt   float64
		want float64
	}{
		{"NoDamping", 0, 1, 4},
		{"Partial", 0.5, 1, 2},
		{"ClampedToZero", 2, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ff := NewForceField(particle.Acceleration{AngularDamp: tt.damp})
			p := components.Particle{AngularVelocity: 4}
			ff.DampAngular(&p, tt.dt)
			if math.Abs(p.AngularVelocity-tt.want) > 1e-12 {
				t.Errorf("AngularVelocity = %v, want %v", p.AngularVelocity, tt.want)
			}
		})
	}
}

func TestIntegrate_ClipsToLifetime(t *testing.T) {
	ff := NewForceField(particle.Acceleration{})
	p := components.Particle{Velocity: mgl64.Vec3{2, 0, 0}, AngularVelocity: 1, Lifetime: 1, Age: 0.75}

	if !integrate(&p, ff, mgl64.Vec3{}, 0, 1) {
		t.Fatal("Particle should expire")
	}
	if p.Age != p.Lifetime {
		t.Errorf("Age = %v, want exactly Lifetime", p.Age)
	}
	if math.Abs(p.Position[0]-0.5) > 1e-12 {
		t.Errorf("Position.x = %v, want 0.5 (integrated over remaining 0.25s)", p.Position[0])
	}
	if math.Abs(p.Angle-0.25) > 1e-12 {
		t.Errorf("Angle = %v, want 0.25", p.Angle)
	}
}
