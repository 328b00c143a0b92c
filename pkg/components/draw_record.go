package components

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/fxsim/internal/particle"
)

// DrawRecord is the finalized per-particle data handed to the renderer.
// The material is a reference string only; no texture is owned here.
type DrawRecord struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3 // For AlignVelocity billboards
	Size     mgl64.Vec2 // Curve size multiplied by particle scale
	Rotation float64    // Radians about Axis
	Axis     mgl64.Vec3
	Color    mgl64.Vec4 // RGBA 0-1

	// Atlas cell (图集单元), 0 when the sprite has no sheet
	Cell    int
	Columns int
	Rows    int

	Material  string
	Billboard particle.BillboardMode
}
