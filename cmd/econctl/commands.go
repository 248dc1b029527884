package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/corpgame/econ-engine/internal/app"
	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/engine"
	"github.com/corpgame/econ-engine/internal/market"
	"github.com/corpgame/econ-engine/internal/model"
	"github.com/corpgame/econ-engine/internal/store"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
)

func newPricesCmd(jsonOut *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Compute and print the current price snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				snap, err := a.Engine.CurrentSnapshot(ctx)
				if err != nil {
					return err
				}
				if *jsonOut {
					return printJSON(snap)
				}

				accent.Printf("Snapshot %s (catalog %s)\n", snap.ID, snap.CatalogVersion)
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tNAME\tPRICE")
				for _, r := range sortedKeys(snap.Commodity) {
					fmt.Fprintf(tw, "resource\t%s\t%s\n", r, snap.Commodity[r].StringFixed(2))
				}
				for _, p := range sortedKeys(snap.Product) {
					fmt.Fprintf(tw, "product\t%s\t%s\n", p, snap.Product[p].StringFixed(2))
				}
				return tw.Flush()
			})
		},
	}
}

func newHistoryCmd(jsonOut *bool) *cobra.Command {
	var kind string
	var limit int
	cmd := &cobra.Command{
		Use:   "history <name>",
		Short: "Print the recorded price history of a resource or product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := model.PriceKind(kind)
			if k != model.PriceKindResource && k != model.PriceKindProduct {
				return fmt.Errorf("kind must be resource or product, got %q", kind)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var src store.History = a.Store
				if a.Archive != nil {
					src = a.Archive
				}
				recs, err := src.PriceHistory(ctx, k, args[0], limit)
				if err != nil {
					return err
				}
				if *jsonOut {
					return printJSON(recs)
				}
				if len(recs) == 0 {
					warn.Println("No history recorded.")
					return nil
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RECORDED\tPRICE\tSUPPLY\tDEMAND")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						r.RecordedAt.Format("2006-01-02 15:04"), r.Price.StringFixed(2), r.Supply.String(), r.Demand.String())
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(model.PriceKindResource), "resource or product")
	cmd.Flags().IntVar(&limit, "limit", 24, "rows to print, newest first (0 for all)")
	return cmd
}

func newEconomicsCmd(jsonOut *bool) *cobra.Command {
	var commodity, product map[string]string
	cmd := &cobra.Command{
		Use:   "economics <unit-type> <sector>",
		Short: "Print per-unit hourly economics, optionally at override prices",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := model.ParseUnitType(args[0])
			if !ok {
				return fmt.Errorf("unknown unit type %q", args[0])
			}
			sector := model.Sector(args[1])

			commodityPrices, err := parsePrices[model.Resource](commodity)
			if err != nil {
				return err
			}
			productPrices, err := parsePrices[model.Product](product)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, ok := a.Engine.Catalog().Sectors[sector]; !ok {
					return fmt.Errorf("unknown sector %q", sector)
				}
				var override *market.PriceSnapshot
				if len(commodityPrices)+len(productPrices) > 0 {
					override, err = a.Engine.WithOverrides(ctx, commodityPrices, productPrices)
					if err != nil {
						return err
					}
				}
				res, err := a.Engine.UnitEconomics(ctx, t, sector, override)
				if err != nil {
					return err
				}
				if *jsonOut {
					return printJSON(res)
				}

				accent.Printf("%s %s\n", sector, t)
				if res.Disabled {
					danger.Println("Disabled: nothing to sell for this unit type.")
				}
				fmt.Printf("  revenue/h  %s\n", res.HourlyRevenue.StringFixed(2))
				fmt.Printf("  cost/h     %s (labor %s, resources %s, products %s)\n",
					res.HourlyCost.StringFixed(2), res.LaborCost.StringFixed(2),
					res.ResourceCost.StringFixed(2), res.ProductCost.StringFixed(2))
				printSigned("  profit/h   ", res.HourlyProfit)
				return nil
			})
		},
	}
	cmd.Flags().StringToStringVar(&commodity, "commodity", nil, "override commodity prices, e.g. Oil=80")
	cmd.Flags().StringToStringVar(&product, "product", nil, "override product prices, e.g. Electricity=150")
	return cmd
}

func newFinancesCmd(jsonOut *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "finances <corporation-id>",
		Short: "Roll up a corporation's hourly and 96-hour finances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				fin, err := a.Engine.CalculateFinances(ctx, args[0], nil, true)
				if err != nil {
					return err
				}
				if *jsonOut {
					return printJSON(fin)
				}

				accent.Printf("Corporation %s (%d units)\n", fin.CorporationID, fin.Units.Total())
				fmt.Printf("  revenue/h  %s\n", fin.HourlyRevenue.StringFixed(2))
				fmt.Printf("  cost/h     %s\n", fin.HourlyCost.StringFixed(2))
				printSigned("  profit/h   ", fin.HourlyProfit)
				printSigned("  profit/96h ", fin.Profit96h)
				if st := fin.Statement; st != nil {
					fmt.Printf("  CEO salary %s\n", st.CEOSalary96h.StringFixed(2))
					fmt.Printf("  dividends  %s (%s per share)\n", st.DividendPayout96h.StringFixed(2), st.DividendPerShare96h.StringFixed(4))
					printSigned("  net/96h    ", st.NetIncome96h)
				}
				return nil
			})
		},
	}
}

func newValueCmd(jsonOut *bool) *cobra.Command {
	var persist, variation bool
	cmd := &cobra.Command{
		Use:   "value <corporation-id>",
		Short: "Value a corporation's shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				v, err := a.Engine.CalculateStockPrice(ctx, args[0], engine.ValuationOptions{
					Variation: variation,
					DryRun:    !persist,
				})
				if err != nil {
					return err
				}
				if *jsonOut {
					return printJSON(v)
				}

				accent.Printf("Corporation %s\n", v.CorporationID)
				fmt.Printf("  book value/share  %s\n", v.Balance.BookValuePerShare.StringFixed(2))
				fmt.Printf("  earnings value    %s\n", v.EarningsValue.StringFixed(2))
				if v.HasTradeSignal {
					fmt.Printf("  trade-weighted    %s\n", v.TradeWeightedPrice.StringFixed(2))
				}
				fmt.Printf("  fundamental       %s\n", v.Fundamental.StringFixed(2))
				success.Printf("  share price       %s\n", v.CalculatedPrice.StringFixed(2))
				if !persist {
					warn.Println("Dry run: share price not written (use --persist).")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "write the new share price")
	cmd.Flags().BoolVar(&variation, "variation", false, "apply the hourly random variation")
	return cmd
}

func newTickCmd(jsonOut *bool) *cobra.Command {
	var variation bool
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one valuation tick over every corporation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Engine.RunTick(ctx, engine.TickOptions{Variation: variation})
				if *jsonOut {
					if perr := printJSON(report); perr != nil {
						return perr
					}
					return err
				}

				accent.Printf("Tick on snapshot %s (catalog %s) in %s\n", report.SnapshotID, report.CatalogVersion, report.Duration)
				for _, id := range sortedKeys(report.Prices) {
					fmt.Printf("  %-24s %s\n", id, report.Prices[id].StringFixed(2))
				}
				for _, id := range sortedKeys(report.Skipped) {
					danger.Printf("  %-24s skipped: %s\n", id, report.Skipped[id])
				}
				if report.Canceled > 0 {
					warn.Printf("%d corporations not valued: tick canceled.\n", report.Canceled)
				}
				if err != nil {
					return err
				}
				success.Printf("Valued %d corporations, %d history rows.\n", report.Valued(), report.HistoryRows)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&variation, "variation", true, "apply the hourly random variation")
	return cmd
}

func newCatalogCmd(jsonOut *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate sector catalogs",
	}

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse and validate a YAML or JSON catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := (&catalog.FileSource{Path: args[0]}).Load(cmd.Context())
			if err != nil {
				return err
			}
			success.Printf("Valid catalog %s: %d sectors, %d resources, %d products.\n",
				cat.Version, len(cat.Sectors), len(cat.Resources), len(cat.Products))
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the catalog currently in force",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				cat := a.Engine.Catalog()
				if *jsonOut {
					return printJSON(cat)
				}
				accent.Printf("Catalog %s\n", cat.Version)
				for _, s := range cat.SectorList() {
					p := cat.Profile(s)
					fmt.Printf("  %-20s produces=%-24s extracts=%v\n", s, p.Produces, p.Extractable)
				}
				return nil
			})
		},
	}

	publish := &cobra.Command{
		Use:   "publish <file>",
		Short: "Validate a catalog file and store it in Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := (&catalog.FileSource{Path: args[0]}).Load(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := json.Marshal(cat)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Postgres == nil {
					return fmt.Errorf("publish needs DATABASE_URL")
				}
				if err := a.Postgres.SaveCatalog(ctx, doc, cat.Version); err != nil {
					return err
				}
				success.Printf("Published catalog %s.\n", cat.Version)
				return nil
			})
		},
	}

	cmd.AddCommand(validate, show, publish)
	return cmd
}

// --- Helpers ---

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSigned(label string, v decimal.Decimal) {
	c := success
	if v.IsNegative() {
		c = danger
	}
	c.Printf("%s%s\n", label, v.StringFixed(2))
}

func parsePrices[K ~string](raw map[string]string) (map[K]decimal.Decimal, error) {
	out := make(map[K]decimal.Decimal, len(raw))
	for name, s := range raw {
		p, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("price for %q: %w", name, err)
		}
		if p.IsNegative() {
			return nil, fmt.Errorf("price for %q is negative", name)
		}
		out[K(name)] = p
	}
	return out, nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
