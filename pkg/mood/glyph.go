package mood

import (
	"fmt"

	"github.com/fatih/color"
)

// Glyph carries the display metadata for a state.
type Glyph struct {
	Emoji string
	// Hex is the text colour used by graphical clients.
	Hex string
	// Term is the closest terminal colour.
	Term color.Attribute
}

const (
	escape    = "\x1b"
	resetCode = 0
	boldCode  = 1
)

// Bold wraps in with the terminal bold escape.
func Bold(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, boldCode, in, escape, resetCode)
}

var glyphs = map[State]Glyph{
	Happiness: {Emoji: "😊", Hex: "#594D01", Term: color.FgHiYellow},
	Surprise:  {Emoji: "😱", Hex: "#593A01", Term: color.FgYellow},
	Anger:     {Emoji: "😡", Hex: "#590001", Term: color.FgRed},
	Confusion: {Emoji: "😵‍💫", Hex: "#320159", Term: color.FgMagenta},
	Disgust:   {Emoji: "🤢", Hex: "#015934", Term: color.FgGreen},
	Fear:      {Emoji: "😨", Hex: "#353535", Term: color.FgHiBlack},
	Sadness:   {Emoji: "☹️", Hex: "#013159", Term: color.FgBlue},
	Shame:     {Emoji: "😳", Hex: "#590031", Term: color.FgHiMagenta},
}

// Glyph returns the display metadata for s. States registered at runtime get a
// plain default.
func (s State) Glyph() Glyph {
	if g, ok := glyphs[s]; ok {
		return g
	}
	return Glyph{Hex: "#333333", Term: color.Reset}
}

// Label renders "emoji name" for terminal output.
func (s State) Label() string {
	g := s.Glyph()
	if g.Emoji == "" {
		return s.String()
	}
	return g.Emoji + " " + s.String()
}
