package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netrack/ofctrl/config"
	"github.com/netrack/ofctrl/grouptable"
	"github.com/netrack/ofctrl/ofctrl"
)

// tickInterval bounds how often Run/Put execute when the switch link
// has nothing new to report; real wakeups arrive sooner via Wait().
const tickInterval = 200 * time.Millisecond

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Connect to the bridge and reconcile flow/group state until stopped",
	RunE:  runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func setupLogger(jsonOutput bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if jsonOutput {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func runUp(_ *cobra.Command, _ []string) error {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("ofctrld up: %w", err)
		}
		cfg = loaded
	}

	log, err := setupLogger(logJSON)
	if err != nil {
		return fmt.Errorf("ofctrld up: build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Infow("starting ofctrld", "bridge", bridge, "target", cfg.Target(bridge))

	reg := prometheus.NewRegistry()
	engine := ofctrl.Init(cfg, log, reg)
	groups := grouptable.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		engine.Run(&bridge)
		engine.Put(groups)

		select {
		case <-ctx.Done():
			log.Infow("shutting down ofctrld")
			return engine.Close()
		case <-engine.Wait():
		case <-ticker.C:
		}
	}
}
