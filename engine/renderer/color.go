package renderer

// Color is a linear RGB color with components in [0, 1].
type Color struct {
	R, G, B float32
}

func NewColor(r, g, b float32) Color {
	return Color{R: r, G: g, B: b}
}

func (c Color) Array() [3]float32 {
	return [3]float32{c.R, c.G, c.B}
}
