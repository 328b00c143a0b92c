package game

import (
	"math"
	"testing"
	"testing/fstest"

	"github.com/decker502/fxsim/internal/particle"
)

// sparkEffect 一个持续发射并带 Stop 子发射器的特效
const sparkEffect = `
emitters:
  - emit:
      max_particles: 64
      particles_per_burst: 4
      burst_interval: 0.1
      shape:
        Sphere: {inner_radius: 0, outer_radius: 0.5}
    init:
      lifetime_min: 0.3
      lifetime_max: 0.6
      velocity_min: 1
      velocity_max: 2
    accel:
      gravity: "0 0 -2"
    display:
      Sprite:
        material: fx/spark
        size: [{time: 0, value: 0.2}, {time: 1, value: 0.05}]
        color: [{time: 0, value: "#ffffff"}]
    sub:
      - trigger: Stop
        emitter:
          emit:
            max_particles: 4
            particles_per_burst: 2
            burst_interval: 0
            max_bursts: 1
            shape: {Point: {}}
          init: {lifetime_min: 0.2, lifetime_max: 0.2}
          display:
            Sprite:
              material: fx/smoke
              size: [{time: 0, value: 0.1}]
              color: [{time: 0, value: "128 128 128 200"}]
`

// oneShotEffect 单次爆发的特效，之后会进入 Finished
const oneShotEffect = `
emitters:
  - emit:
      max_particles: 8
      particles_per_burst: 8
      burst_interval: 0
      max_bursts: 1
      shape: {Point: {}}
    init: {lifetime_min: 0.5, lifetime_max: 0.5}
`

func testEffectFS() fstest.MapFS {
	return fstest.MapFS{
		"effects/spark.yaml":   {Data: []byte(sparkEffect)},
		"effects/oneshot.yaml": {Data: []byte(oneShotEffect)},
	}
}

func mustParse(t *testing.T, src, name string) *particle.Definition {
	t.Helper()
	def, err := particle.Parse([]byte(src), name)
	if err != nil {
		t.Fatalf("Parse(%s) failed: %v", name, err)
	}
	return def
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
