package theme

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/bethropolis/proofsync/internal/logger"
)

// Theme maps style names to tcell styles. UI elements use capitalised
// names ("Default", "StatusBar"); decorations use their decoration type
// ("proofsync.warning") and gutter markers use "Marker.<severity>".
type Theme struct {
	Name   string
	IsDark bool
	Styles map[string]tcell.Style
}

// GetStyle returns the style for name, falling back to the part before the
// last dot, then to "Default".
func (t *Theme) GetStyle(name string) tcell.Style {
	if style, ok := t.Styles[name]; ok {
		return style
	}
	if dot := strings.LastIndex(name, "."); dot != -1 {
		if style, ok := t.Styles[name[:dot]]; ok {
			return style
		}
	}
	if defStyle, ok := t.Styles["Default"]; ok {
		return defStyle
	}
	logger.Warnf("Theme '%s': Style '%s' and 'Default' style not found, using tcell default.", t.Name, name)
	return tcell.StyleDefault
}

// Has reports whether the theme defines name exactly.
func (t *Theme) Has(name string) bool {
	_, ok := t.Styles[name]
	return ok
}

// ProofDark is the built-in theme.
var ProofDark = newProofDark()

func newProofDark() *Theme {
	background := tcell.NewHexColor(0x2a2f38)
	foreground := tcell.NewHexColor(0xc5cdd9)
	comment := tcell.NewHexColor(0x5c6370)
	orange := tcell.NewHexColor(0xd19a66)
	yellow := tcell.NewHexColor(0xe5c07b)
	green := tcell.NewHexColor(0x98c379)
	cyan := tcell.NewHexColor(0x56b6c2)
	blue := tcell.NewHexColor(0x61afef)
	red := tcell.NewHexColor(0xe06c75)
	outdatedBg := tcell.NewHexColor(0x3b3030)
	unprocessedBg := tcell.NewHexColor(0x3a3520)
	unfinishedBg := tcell.NewHexColor(0x24324a)

	base := tcell.StyleDefault.Background(tcell.ColorReset).Foreground(foreground)

	return &Theme{
		Name:   "Proof Dark",
		IsDark: true,
		Styles: map[string]tcell.Style{
			"Default":           base,
			"LineNumber":        base.Foreground(comment),
			"StatusBar":         tcell.StyleDefault.Background(background).Foreground(foreground),
			"StatusBarModified": tcell.StyleDefault.Background(background).Foreground(yellow),
			"StatusBarMessage":  tcell.StyleDefault.Background(background).Foreground(foreground).Bold(true),
			"StatusBarError":    tcell.StyleDefault.Background(background).Foreground(red).Bold(true),
			"StatusBarSession":  tcell.StyleDefault.Background(background).Foreground(green),

			"proofsync.outdated":    base.Background(outdatedBg),
			"proofsync.unprocessed": base.Background(unprocessedBg),
			"proofsync.unfinished":  base.Background(unfinishedBg),
			"proofsync.bad":         base.Foreground(red).Reverse(true),
			"proofsync.hilite":      base.Foreground(orange).Bold(true),
			"proofsync.token_range": base.Foreground(blue).Bold(true),
			"proofsync.error":       base.Foreground(red).Underline(true),
			"proofsync.warning":     base.Foreground(yellow).Underline(true),
			"proofsync.legacy":      base.Foreground(cyan).Underline(true),
			"proofsync.info":        base.Foreground(green).Italic(true),

			"Marker":         base.Foreground(comment),
			"Marker.error":   base.Foreground(red).Bold(true),
			"Marker.warning": base.Foreground(yellow).Bold(true),
			"Marker.info":    base.Foreground(green),
		},
	}
}
