package document

// Swatch is one of the fixed team colors.
type Swatch struct {
	Name string
	Hex  string
}

var Palette = [...]Swatch{
	{Name: "Red", Hex: "#e6194b"},
	{Name: "Green", Hex: "#3cb44b"},
	{Name: "Yellow", Hex: "#ffe119"},
	{Name: "Blue", Hex: "#0082c8"},
	{Name: "Orange", Hex: "#f58231"},
	{Name: "Purple", Hex: "#911eb4"},
	{Name: "Cyan", Hex: "#46f0f0"},
	{Name: "Pink", Hex: "#f032e6"},
	{Name: "Lime", Hex: "#d2f53c"},
	{Name: "Peach", Hex: "#fabebe"},
}

func ValidColor(hex string) bool {
	_, ok := ColorName(hex)

	return ok
}

// ColorName returns the palette name of hex.
func ColorName(hex string) (string, bool) {
	for _, s := range Palette {
		if s.Hex == hex {
			return s.Name, true
		}
	}

	return "", false
}
