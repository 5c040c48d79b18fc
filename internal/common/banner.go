package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	version := GetVersion()
	build := GetBuild()

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 58
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		`   d8b  .d88888b.  8888888888 8888888888 8888888888 8888888b.`,
		`   Y8P d88P" "Y88b 888        888        888        888  "88b`,
		`       888     888 888        888        888        888   888`,
		`       888     888 8888888    8888888    8888888    888   888`,
		`       888     888 888        888        888        888   888`,
		`   888 888 Y8b 888 888        888        888        888   888`,
		`   888 Y88b.Y8b88P 888        888        888        888  .88P`,
		`   888  "Y888888"  888        888        8888888888 8888888P"`,
		`  d88P        Y8b`,
		`d88P"`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  J-Quants Market Data Ingestion%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	kvPad := 14
	kvLines := [][2]string{
		{"Version", version},
		{"Build", build},
		{"Environment", config.Environment},
		{"Database", config.Storage.Path},
		{"API", config.JQuants.BaseURL},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("environment", config.Environment).
		Str("database", config.Storage.Path).
		Msg("Application started")
}
