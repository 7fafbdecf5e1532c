package model

// Color is a closed set of display tokens.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorPurple Color = "purple"
	ColorTeal   Color = "teal"
	ColorGray   Color = "gray"
)

// Colors lists every token in a stable order.
var Colors = []Color{ColorBlue, ColorGreen, ColorRed, ColorOrange, ColorPurple, ColorTeal, ColorGray}

// ColorStyle is the resolved paint for an event block.
type ColorStyle struct {
	Background string `json:"background"`
	Border     string `json:"border"`
	Foreground string `json:"foreground"`
}

var palette = map[Color]ColorStyle{
	ColorBlue:   {Background: "#e8f1fd", Border: "#3b82f6", Foreground: "#1e3a8a"},
	ColorGreen:  {Background: "#e9f8ef", Border: "#22c55e", Foreground: "#14532d"},
	ColorRed:    {Background: "#fdecec", Border: "#ef4444", Foreground: "#7f1d1d"},
	ColorOrange: {Background: "#fff3e6", Border: "#f97316", Foreground: "#7c2d12"},
	ColorPurple: {Background: "#f3edfd", Border: "#8b5cf6", Foreground: "#4c1d95"},
	ColorTeal:   {Background: "#e6f7f6", Border: "#14b8a6", Foreground: "#134e4a"},
	ColorGray:   {Background: "#f3f4f6", Border: "#9ca3af", Foreground: "#1f2937"},
}

func (c Color) Valid() bool {
	_, ok := palette[c]
	return ok
}

// Palette resolves c; unknown tokens fall back to gray.
func Palette(c Color) ColorStyle {
	if s, ok := palette[c]; ok {
		return s
	}
	return palette[ColorGray]
}
