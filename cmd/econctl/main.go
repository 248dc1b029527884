// Command econctl runs the engine's operations once from the command line,
// against the same configuration the server uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corpgame/econ-engine/internal/app"
	"github.com/corpgame/econ-engine/internal/config"
)

func main() {
	var jsonOut bool

	root := &cobra.Command{
		Use:          "econctl",
		Short:        "Price the market, value corporations and inspect the sector catalog",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON")

	root.AddCommand(
		newPricesCmd(&jsonOut),
		newHistoryCmd(&jsonOut),
		newEconomicsCmd(&jsonOut),
		newFinancesCmd(&jsonOut),
		newValueCmd(&jsonOut),
		newTickCmd(&jsonOut),
		newCatalogCmd(&jsonOut),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// withApp loads config, opens the backends and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx := cmd.Context()
	a, err := app.Open(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
