package world

import "math"

// Vector3 is a position, scale or velocity in world space.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vector3) Distance(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Quaternion is a rotation. Identity returns the no-rotation value.
type Quaternion struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

func Identity() Quaternion {
	return Quaternion{W: 1}
}

// RGBA is a normalized color, each channel in [0, 1].
type RGBA struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
	A float64 `json:"a" yaml:"a"`
}
