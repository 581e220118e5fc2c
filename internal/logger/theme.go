package logger

import "github.com/pterm/pterm"

// Theme defines the colour scheme used by StyledLogger and the pterm
// terminal handler. Trimmed down to the fields the proxy's log call sites
// actually use.
type Theme struct {
	Info  *pterm.Style
	Muted *pterm.Style

	Origin    pterm.Color
	CacheHit  pterm.Color
	CacheMiss pterm.Color
	Numbers   pterm.Color
	Counts    pterm.Color
	StatusOK  pterm.Color
	StatusErr pterm.Color
}

// Default returns the proxy's default colour scheme.
func Default() *Theme {
	return &Theme{
		Info:  pterm.NewStyle(pterm.FgGreen),
		Muted: pterm.NewStyle(pterm.FgGray),

		Origin:    pterm.FgCyan,
		CacheHit:  pterm.FgGreen,
		CacheMiss: pterm.FgYellow,
		Numbers:   pterm.FgLightBlue,
		Counts:    pterm.FgMagenta,
		StatusOK:  pterm.FgGreen,
		StatusErr: pterm.FgRed,
	}
}

// Dark returns a higher-contrast variant for dark terminals.
func Dark() *Theme {
	return &Theme{
		Info:  pterm.NewStyle(pterm.FgLightGreen),
		Muted: pterm.NewStyle(pterm.FgGray),

		Origin:    pterm.FgLightCyan,
		CacheHit:  pterm.FgLightGreen,
		CacheMiss: pterm.FgLightYellow,
		Numbers:   pterm.FgLightBlue,
		Counts:    pterm.FgLightMagenta,
		StatusOK:  pterm.FgLightGreen,
		StatusErr: pterm.FgLightRed,
	}
}

// GetTheme returns the named theme, falling back to Default.
func GetTheme(name string) *Theme {
	switch name {
	case "dark":
		return Dark()
	default:
		return Default()
	}
}
