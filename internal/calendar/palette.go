package calendar

// DefaultColor is applied to new appointments when no colour is chosen.
const DefaultColor = "#3b82f6"

// Palette lists the colours offered by the editor. Appointments may still
// carry any free-form colour string.
var Palette = []string{
	"#3b82f6",
	"#10b981",
	"#f59e0b",
	"#ef4444",
	"#8b5cf6",
	"#06b6d4",
	"#84cc16",
	"#f97316",
}

// InPalette reports whether color is one of the predefined palette entries.
func InPalette(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}
