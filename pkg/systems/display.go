package systems

import (
	"math"

	"github.com/decker502/fxsim/internal/particle"
	"github.com/decker502/fxsim/pkg/components"
)

// buildDrawRecords evaluates the display of every live particle of a Sprite
// emitter. Emitters without a display produce no records.
func buildDrawRecords(e *components.EmitterComponent) {
	e.Records = e.Records[:0]
	s := e.Def.Display
	if s == nil {
		return
	}

	e.Pool.Each(func(_ components.SlotID, p *components.Particle) {
		f := lifeFraction(p)
		rec := components.DrawRecord{
			Position:  p.Position,
			Velocity:  p.Velocity,
			Size:      s.Size.Evaluate(f).Mul(p.Scale),
			Rotation:  p.Angle,
			Axis:      p.AngleAxis,
			Color:     s.Color.Evaluate(f),
			Material:  s.Material,
			Billboard: s.Billboard,
			Columns:   1,
			Rows:      1,
		}
		if s.Sheet != nil {
			rec.Cell = SheetCell(s.Sheet, p.Age, p.SeedOffset)
			rec.Columns = s.Sheet.Columns
			rec.Rows = s.Sheet.Rows
		}
		e.Records = append(e.Records, rec)
	})
}

// lifeFraction returns age/lifetime in [0,1].
func lifeFraction(p *components.Particle) float64 {
	if p.Lifetime <= 0 {
		return 1
	}
	f := p.Age / p.Lifetime
	if f > 1 {
		return 1
	}
	return f
}

// SheetCell returns the atlas cell for a particle of the given age.
//
// The random start offsets the animation by seedOffset of a full cycle so
// that particles spawned together do not animate in lockstep.
func SheetCell(sheet *particle.SpriteSheet, age, seedOffset float64) int {
	frames := sheet.Frames()
	if frames <= 1 {
		return 0
	}
	start := 0.0
	if sheet.RandomStart {
		start = seedOffset * float64(frames)
	}
	cell := int(math.Floor(start+age*sheet.Timescale*float64(frames))) % frames
	if cell < 0 {
		cell += frames
	}
	return cell
}
