package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/pterm/pterm"
)

var (
	Name        = "go-proxy"
	Authors     = "flynnbui"
	Description = "Caching Concurrent Forward Proxy"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/flynnbui/go-proxy"
	GithubHomeUri   = "https://github.com/flynnbui/go-proxy"
	GithubLatestUri = "https://github.com/flynnbui/go-proxy/releases/latest"
)

// hyperlink renders a clickable terminal hyperlink using the OSC 8 escape sequence.
func hyperlink(uri, text string) string {
	return "\x1b]8;;" + uri + "\x07" + text + "\x1b]8;;\x07" + "[0m"
}

// PrintVersionInfo writes a splash banner with the proxy's build metadata.
func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := hyperlink(GithubLatestUri, Version)
	padLatest := fmt.Sprintf("%*s", 1-len(Version), "")
	padBuffer := fmt.Sprintf("%*s", 2, "")

	var b strings.Builder

	b.WriteString(pterm.LightGreen(`
╔────────────────────────────────────────────────────────╗
│   ██████╗  ██████╗ ██████╗ ██████╗  ██████╗ ██╗  ██╗   │
│  ██╔════╝ ██╔═══██╗██╔══██╗██╔══██╗██╔═══██╗╚██╗██╔╝   │
│  ██║  ███╗██║   ██║██████╔╝██████╔╝██║   ██║ ╚███╔╝    │
│  ██║   ██║██║   ██║╚════██║██╔═══╝ ██║   ██║ ██╔██╗    │
│  ╚██████╔╝╚██████╔╝     ██║██║     ╚██████╔╝██╔╝ ██╗   │
│   ╚═════╝  ╚═════╝      ╚═╝╚═╝      ╚═════╝ ╚═╝  ╚═╝   │` + "\n"))

	b.WriteString(pterm.LightGreen("│ "))
	b.WriteString(pterm.LightBlue(githubUri))
	b.WriteString(padLatest)
	b.WriteString(pterm.LightYellow(latestUri))
	b.WriteString(padBuffer)
	b.WriteString(pterm.LightGreen("     │\n"))
	b.WriteString(pterm.LightGreen("╚────────────────────────────────────────────────────────╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
