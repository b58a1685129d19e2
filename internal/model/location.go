package model

import "math"

// Position is a point in the chunk's local coordinate space plus a Z
// rotation heading. Value type — always passed and returned by value.
type Position struct {
	X, Y, Z float64
	RotZ    float64 // degrees, [0, 360)
}

// NewPosition builds a Position, normalizing RotZ into [0, 360).
func NewPosition(x, y, z, rotZ float64) Position {
	return Position{X: x, Y: y, Z: z, RotZ: normalizeDegrees(rotZ)}
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// DistanceXY returns the planar (X/Y) Euclidean distance to other.
func (p Position) DistanceXY(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceXYSquared avoids the sqrt for hot comparisons (e.g. range checks
// against a squared threshold).
func (p Position) DistanceXYSquared(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// AABB is an axis-aligned box described by a center and a full size per
// axis (spawn zones use this; size is sx,sy,sz, not half-extents).
type AABB struct {
	CenterX, CenterY, CenterZ float64
	SizeX, SizeY, SizeZ       float64
}

// Contains reports whether (x, y) lies within the box's X/Y extent.
// Z is intentionally ignored for spawn-zone membership checks — mobs and
// players are treated as living on a 2D plane with a cosmetic Z.
func (b AABB) Contains(x, y float64) bool {
	halfX, halfY := b.SizeX/2, b.SizeY/2
	return x >= b.CenterX-halfX && x <= b.CenterX+halfX &&
		y >= b.CenterY-halfY && y <= b.CenterY+halfY
}

// Clamp pulls (x, y) back inside the box if it has drifted outside.
func (b AABB) Clamp(x, y float64) (float64, float64) {
	halfX, halfY := b.SizeX/2, b.SizeY/2
	minX, maxX := b.CenterX-halfX, b.CenterX+halfX
	minY, maxY := b.CenterY-halfY, b.CenterY+halfY
	if x < minX {
		x = minX
	} else if x > maxX {
		x = maxX
	}
	if y < minY {
		y = minY
	} else if y > maxY {
		y = maxY
	}
	return x, y
}

// DistanceToBorder returns the distance from (x, y) to the nearest edge of
// the box. Negative values mean the point already lies outside.
func (b AABB) DistanceToBorder(x, y float64) float64 {
	halfX, halfY := b.SizeX/2, b.SizeY/2
	minX, maxX := b.CenterX-halfX, b.CenterX+halfX
	minY, maxY := b.CenterY-halfY, b.CenterY+halfY

	dLeft := x - minX
	dRight := maxX - x
	dBottom := y - minY
	dTop := maxY - y

	return math.Min(math.Min(dLeft, dRight), math.Min(dBottom, dTop))
}

// MaxSize returns max(sx, sy) — used by movement step-size clamps.
func (b AABB) MaxSize() float64 {
	return math.Max(b.SizeX, b.SizeY)
}
