package appearance

// Glow is the optional highlight outline of a display. The zero value is off.
type Glow struct {
	On    bool
	Color uint32
}

// Named highlight colors, 0xRRGGBB.
const (
	ColorBlack uint32 = 0x000000
	ColorRed   uint32 = 0xFF0000
	ColorLime  uint32 = 0x00FF00
)

// GlowColor turns the highlight on with an RGB color; bits above 24 are dropped.
func GlowColor(rgb uint32) Glow {
	return Glow{On: true, Color: rgb & 0xFFFFFF}
}
