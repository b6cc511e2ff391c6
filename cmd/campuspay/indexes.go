package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/phillip/campus-pay-go/config"
	"github.com/phillip/campus-pay-go/store/mongostore"
)

func newEnsureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.StoreDriver != config.StoreMongo {
				return errors.New("ensure-indexes needs STORE_DRIVER=mongo")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.DBName)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			if err := st.EnsureIndexes(ctx); err != nil {
				return err
			}
			logger.Info("Indexes ensured", "database", cfg.DBName)
			return nil
		},
	}
}
