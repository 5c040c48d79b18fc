package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tkasuya/jqfeed/internal/app"
	"github.com/tkasuya/jqfeed/internal/services/screen"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to jqfeed.toml (default: $JQFEED_CONFIG)")
	limit := flag.Int("limit", 0, "max candidates to show (default: config limit)")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	service := screen.NewService(a.Store, a.Config.Screen, a.Logger)

	candidates, err := service.Screen(context.Background(), *limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Screening failed")
		a.Close()
		os.Exit(1)
	}

	fmt.Printf("=== BUY CANDIDATES (%d records) ===\n", len(candidates))
	fmt.Print(screen.FormatCandidates(candidates))
}
