package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tkasuya/jqfeed/internal/app"
	"github.com/tkasuya/jqfeed/internal/clients/jquants"
	"github.com/tkasuya/jqfeed/internal/common"
	"github.com/tkasuya/jqfeed/internal/services/ingest"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to jqfeed.toml (default: $JQFEED_CONFIG)")
	quotesOnly := flag.Bool("quotes", false, "ingest daily quotes only")
	financialsOnly := flag.Bool("financials", false, "ingest financial statements only")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	common.PrintBanner(a.Config, a.Logger)

	if missing := a.Config.ValidateRequired(); len(missing) > 0 {
		a.Logger.Fatal().Str("missing", strings.Join(missing, ", ")).Msg("Configuration incomplete")
	}

	ctx := context.Background()

	client, err := jquants.NewClient(ctx, a.Config.JQuants.RefreshToken,
		jquants.WithBaseURL(a.Config.JQuants.BaseURL),
		jquants.WithRateLimit(a.Config.JQuants.RateLimit),
		jquants.WithTimeout(a.Config.JQuants.GetTimeout()),
		jquants.WithLogger(a.Logger),
	)
	if err != nil {
		a.Logger.Fatal().Err(err).Msg("Token acquisition failed")
	}

	service := ingest.NewService(a.Store, client, a.Config.Ingest, a.Logger)

	switch {
	case *quotesOnly && !*financialsOnly:
		err = service.RunQuotes(ctx)
	case *financialsOnly && !*quotesOnly:
		err = service.RunFinancials(ctx)
	default:
		err = service.Run(ctx)
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("Ingestion finished with errors")
		a.Close()
		os.Exit(1)
	}

	a.Logger.Info().Msg("Ingestion complete")
}
