package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	wstm "github.com/stmcore/wstm"
	"github.com/stmcore/wstm/internal/telemetry"
)

func newBankCommand() *cobra.Command {
	var (
		accounts    int
		workers     int
		transfers   int
		variant     string
		configPath  string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Run a concurrent bank-transfer workload",
		Long:  "Spreads an initial balance across N accounts and runs concurrent workers transferring between random pairs, then checks the total is conserved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDemoConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if variant != "" {
				cfg.Variant = variant
			}
			if verbose {
				cfg.Verbose = true
			}
			return runBank(bankOpts{
				accounts:  accounts,
				workers:   workers,
				transfers: transfers,
				cfg:       cfg,
			})
		},
	}

	cmd.Flags().IntVar(&accounts, "accounts", 16, "number of accounts")
	cmd.Flags().IntVar(&workers, "workers", 8, "number of concurrent worker goroutines")
	cmd.Flags().IntVar(&transfers, "transfers", 20000, "total transfers to attempt across all workers")
	cmd.Flags().StringVar(&variant, "variant", "", "write-buffering variant: ctl, etl, or write-through (overrides config file)")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "emit structured engine telemetry to stderr")

	return cmd
}

type bankOpts struct {
	accounts, workers, transfers int
	cfg                          demoConfig
}

func variantFromName(name string) wstm.Variant {
	switch name {
	case "etl":
		return wstm.VariantETL
	case "write-through":
		return wstm.VariantWriteThrough
	default:
		return wstm.VariantCTL
	}
}

func runBank(opts bankOpts) error {
	sink := telemetry.Disabled()
	if opts.cfg.Verbose {
		sink = telemetry.New(os.Stderr, zerolog.InfoLevel)
	}

	engineCfg := wstm.DefaultConfig()
	engineCfg.Variant = variantFromName(opts.cfg.Variant)
	if opts.cfg.TableLogSize > 0 {
		engineCfg.TableLogSize = opts.cfg.TableLogSize
	}
	if opts.cfg.MaxThreads > 0 {
		engineCfg.MaxThreads = opts.cfg.MaxThreads
	}
	engineCfg.Telemetry = sink

	engine := wstm.NewEngine(engineCfg)
	defer engine.Exit()

	const initialBalance = 1000
	accounts := make([]*wstm.Var, opts.accounts)
	for i := range accounts {
		accounts[i] = engine.NewVar(initialBalance)
	}
	want := uint64(opts.accounts) * initialBalance

	perWorker := opts.transfers / opts.workers
	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < opts.workers; w++ {
		w := w
		g.Go(func() error {
			return bankWorker(ctx, engine, accounts, perWorker, int64(w))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	got := sumAccounts(engine, accounts)
	fmt.Printf("variant=%s accounts=%d transfers=%d total_before=%d total_after=%d conserved=%v\n",
		engineCfg.Variant, opts.accounts, perWorker*opts.workers, want, got, want == got)

	if commits, ok := engine.GetStats("commits"); ok {
		aborts, _ := engine.GetStats("aborts")
		fmt.Printf("commits=%d aborts=%d\n", commits, aborts)
	}
	return nil
}

func bankWorker(ctx context.Context, engine *wstm.Engine, accounts []*wstm.Var, n int, seed int64) error {
	h := engine.InitThread()
	defer engine.ExitThread(h)

	rnd := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		from := rnd.Intn(len(accounts))
		to := rnd.Intn(len(accounts))
		if from == to {
			continue
		}
		amount := uint64(rnd.Intn(10) + 1)

		err := engine.Run(h, wstm.Attr{}, func(tx *wstm.Txn) error {
			fromBal, err := accounts[from].Load(tx)
			if err != nil {
				return err
			}
			if fromBal < amount {
				return nil
			}
			toBal, err := accounts[to].Load(tx)
			if err != nil {
				return err
			}
			if err := accounts[from].Store(tx, fromBal-amount); err != nil {
				return err
			}
			return accounts[to].Store(tx, toBal+amount)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func sumAccounts(engine *wstm.Engine, accounts []*wstm.Var) uint64 {
	var total uint64
	_ = engine.Atomically(func(tx *wstm.Txn) error {
		total = 0
		for _, a := range accounts {
			v, err := a.Load(tx)
			if err != nil {
				return err
			}
			total += v
		}
		return nil
	})
	return total
}
