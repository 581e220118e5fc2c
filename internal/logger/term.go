package logger

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// shouldUseColors determines if coloured terminal output should be used.
// references:
//   - https://no-color.org/
func shouldUseColors() bool {
	if noColor := os.Getenv("NO_COLOR"); noColor != "" {
		return false
	}

	if forceColor := os.Getenv("FORCE_COLOR"); forceColor != "" {
		return forceColor != "0"
	}

	if proxyColors := os.Getenv("OLLA_FORCE_COLORS"); proxyColors != "" {
		return strings.ToLower(proxyColors) == "true"
	}

	return isatty.IsTerminal(os.Stdout.Fd())
}
