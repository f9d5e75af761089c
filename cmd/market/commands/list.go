package commands

import (
	"context"

	"github.com/bookstore/services/market/internal/db"
	"github.com/bookstore/services/market/internal/seed"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var (
		items   bool
		barcode string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the users (or items) stored in the market",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.Scope(cmd.Context(), a.cfg.Database, a.log, func(ctx context.Context, database *db.DB) error {
				if barcode != "" {
					return seed.ShowItem(ctx, database, barcode, cmd.OutOrStdout(), a.log)
				}
				if items {
					return seed.ListItems(ctx, database, cmd.OutOrStdout(), a.log)
				}
				return seed.ListUsers(ctx, database, cmd.OutOrStdout(), a.log)
			})
		},
	}

	cmd.Flags().BoolVar(&items, "items", false, "List items (name price description barcode) instead of users")
	cmd.Flags().StringVar(&barcode, "barcode", "", "Show only the item with this barcode")
	cmd.MarkFlagsMutuallyExclusive("items", "barcode")
	return cmd
}
