package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	wstm "github.com/stmcore/wstm"
	"github.com/stmcore/wstm/internal/telemetry"
)

func newRolloverCommand() *cobra.Command {
	var ceiling uint64

	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Force a clock/lock-table rollover and show the engine survives it",
		Long:  "Sets VersionMax directly (via --version-ceiling) so a handful of commits exhaust the clock, then runs one more transaction through the quiescence barrier that resets it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollover(ceiling)
		},
	}

	cmd.Flags().Uint64Var(&ceiling, "version-ceiling", 3, "VersionMax to configure directly, so commits reach it in a handful of iterations")
	return cmd
}

func runRollover(ceiling uint64) error {
	sink := telemetry.New(os.Stderr, zerolog.InfoLevel)

	cfg := wstm.DefaultConfig()
	cfg.VersionCeiling = ceiling
	cfg.Telemetry = sink
	engine := wstm.NewEngine(cfg)
	defer engine.Exit()

	counter := engine.NewVar(0)
	h := engine.InitThread()
	defer engine.ExitThread(h)

	before, _ := engine.GetParameter("version_max")
	fmt.Printf("version_max=%v starting_clock=%d\n", before, engine.GetClock())

	for i := 0; i < 4; i++ {
		err := engine.Run(h, wstm.Attr{}, func(tx *wstm.Txn) error {
			v, err := counter.Load(tx)
			if err != nil {
				return err
			}
			return counter.Store(tx, v+1)
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("ending_clock=%d rollovers=%d\n", engine.GetClock(), mustStat(engine, "rollovers"))
	return nil
}

func mustStat(engine *wstm.Engine, name string) uint64 {
	v, _ := engine.GetStats(name)
	return v
}
