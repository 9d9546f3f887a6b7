package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	_ "time/tzdata"

	"github.com/GiGurra/boa/pkg/boa"
	"golang.org/x/text/language"

	"contas/internal/backend"
	"contas/internal/cli"
	"contas/internal/config"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/report"
	"contas/internal/seed"
)

type Params struct {
	Month    string `descr:"Month to report (YYYY-MM); defaults to the current month" optional:"true"`
	Seed     bool   `descr:"Report on the built-in sample ledger instead of the database" optional:"true"`
	SeedFile string `descr:"Report on a YAML seed file instead of the database" optional:"true"`
	Term     string `descr:"Only transactions whose name contains this text" optional:"true"`
	Tags     string `descr:"Comma separated tags a transaction must all have" optional:"true"`
	Xlsx     string `descr:"Also export the statement to this .xlsx file" optional:"true"`
	Currency string `descr:"ISO currency code used to format amounts" default:"BRL"`
	Color    bool   `descr:"Colour statuses and amounts" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("contas-report").
		WithShort("Print the statement of a ledger month").
		WithLong("Lists the transactions due in a month with their confirmation status, the confirmed bill and the projected balance. Reads the configured database, or an in-memory ledger loaded from a seed.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	if err := cli.LoadEnvFile(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg := config.Load()
	// Seeds are always loaded into a throwaway ledger.
	seeded := params.Seed || params.SeedFile != ""
	if seeded {
		cfg.DataBackend = config.BackendMemory
		cfg.AMQPURL = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentReport)

	ctx := context.Background()
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		return err
	}
	defer result.Cleanup()

	if seeded {
		file, err := loadSeed(params)
		if err != nil {
			return err
		}
		n, err := seed.Apply(ctx, result.Ledger, file)
		if err != nil {
			return fmt.Errorf("seeding ledger: %w", err)
		}
		logger.Debug("Seed applied", "transactions", n)
	}

	filters := core.Filters{Term: strings.TrimSpace(params.Term)}
	if params.Month != "" {
		if filters.Month, err = core.ParseMonth(params.Month); err != nil {
			return err
		}
	}
	if params.Tags != "" {
		filters.Tags = core.NewTagSet(strings.Split(params.Tags, ",")...)
	}

	st, err := result.Ledger.Statement(ctx, filters)
	if err != nil {
		return err
	}

	currency, err := report.NewCurrency(params.Currency, language.BrazilianPortuguese)
	if err != nil {
		return fmt.Errorf("currency %q: %w", params.Currency, err)
	}
	report.PrintStatement(os.Stdout, st, report.Options{Currency: currency, Color: params.Color})

	if params.Xlsx != "" {
		if err := exportXLSX(params.Xlsx, st); err != nil {
			return err
		}
		fmt.Printf("\nExported to %s\n", params.Xlsx)
	}
	return nil
}

func loadSeed(params *Params) (seed.File, error) {
	if params.SeedFile != "" {
		return seed.LoadFile(params.SeedFile)
	}
	return seed.Default()
}

func exportXLSX(path string, st core.MonthStatement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteXLSX(f, st); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
