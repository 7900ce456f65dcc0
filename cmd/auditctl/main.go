// cmd/auditctl/main.go
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/stockops/replenish/internal/config"
	"github.com/stockops/replenish/internal/lock"
	"github.com/stockops/replenish/internal/repository/postgres"
	"github.com/stockops/replenish/internal/service"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newTenantFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "tenant",
		Usage:    "Tenant id",
		Required: true,
	}
}

func newDateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: "Date in YYYY-MM-DD format",
		Value: time.Now().Format("2006-01-02"),
	}
}

func openDB(c *cli.Context) (*postgres.DB, error) {
	return postgres.NewDBFromURL("pgx", c.String("db-url"))
}

func newAuditService(db *postgres.DB) *service.AuditService {
	return service.NewAuditService(postgres.NewMetricAuditRepository(db), lock.NewMemoryLocker())
}

func parseDate(c *cli.Context) (time.Time, error) {
	date, err := time.Parse("2006-01-02", c.String("date"))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", c.String("date"), err)
	}
	return date, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "auditctl",
		Usage: "Operate the replenishment engine: repair duplicate sales metrics and trigger recomputes",
		Commands: []*cli.Command{
			{
				Name:  "investigate",
				Usage: "Report duplicate sales metric rows for a tenant and date",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newTenantFlag(),
					newDateFlag(),
					&cli.StringFlag{Name: "sku", Usage: "Limit to one SKU"},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					date, err := parseDate(c)
					if err != nil {
						return err
					}

					report, err := newAuditService(db).Investigate(c.Context, c.String("tenant"), date, c.String("sku"))
					if err != nil {
						return err
					}
					return printJSON(report)
				},
			},
			{
				Name:  "clean",
				Usage: "Delete all but the most recent row of each duplicated metric group",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newTenantFlag(),
					newDateFlag(),
					&cli.StringFlag{Name: "sku", Usage: "Limit to one SKU"},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					date, err := parseDate(c)
					if err != nil {
						return err
					}

					result, err := newAuditService(db).Clean(c.Context, c.String("tenant"), date, c.String("sku"))
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
			{
				Name:  "validate",
				Usage: "Assert the at-most-one-row invariant for a tenant and date",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newTenantFlag(),
					newDateFlag(),
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					date, err := parseDate(c)
					if err != nil {
						return err
					}

					report, err := newAuditService(db).Validate(c.Context, c.String("tenant"), date)
					if err != nil {
						return err
					}
					return printJSON(report)
				},
			},
			{
				Name:  "recompute",
				Usage: "Run a full replenishment recompute for a tenant",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newTenantFlag(),
					&cli.IntFlag{Name: "window", Usage: "Trailing sales window in days (0 = configured default)"},
					&cli.IntFlag{Name: "horizon", Usage: "Projection horizon in days (0 = configured default)"},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB(c)
					if err != nil {
						return err
					}
					defer db.Close()

					cfg := config.Load()
					recalc := service.NewRecalcService(
						postgres.NewVariantRepository(db),
						postgres.NewSalesRepository(db),
						postgres.NewStockRepository(db),
						postgres.NewReplenishmentRepository(db),
						postgres.NewRunRepository(db),
						lock.NewMemoryLocker(),
						nil,
						cfg.Engine,
					)

					summary, err := recalc.Recalculate(c.Context, c.String("tenant"), service.RecalcOptions{
						WindowDays:  c.Int("window"),
						HorizonDays: c.Int("horizon"),
					})
					if err != nil {
						return err
					}
					return printJSON(summary)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
