package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phillip/campus-pay-go/config"
	"github.com/phillip/campus-pay-go/logging"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "campuspay",
		Short:         "Campus payments, bill splitting and club management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger = logging.Setup(cfg.Log)
			return nil
		},
	}
	root.AddCommand(newServeCmd(), newEnsureIndexesCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if logger != nil {
			logger.Error("Command failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
