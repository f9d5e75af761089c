package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/bookstore/services/market/internal/db"
	"github.com/bookstore/services/market/internal/repo"
	"go.uber.org/zap"
)

// ListUsers prints "name: <username>" for every stored user.
func ListUsers(ctx context.Context, database *db.DB, out io.Writer, log *zap.Logger) error {
	users, err := repo.NewMarketRepository(database, log).ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		fmt.Fprintf(out, "name: %s\n", u.Username)
	}
	return nil
}

// ListItems prints name, price, description and barcode of every stored item.
func ListItems(ctx context.Context, database *db.DB, out io.Writer, log *zap.Logger) error {
	items, err := repo.NewMarketRepository(database, log).ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	for _, it := range items {
		printItem(out, it)
	}
	return nil
}

// ShowItem prints the item stored under barcode in the ListItems format.
func ShowItem(ctx context.Context, database *db.DB, barcode string, out io.Writer, log *zap.Logger) error {
	item, err := repo.NewMarketRepository(database, log).GetItemByBarcode(ctx, barcode)
	if err != nil {
		return fmt.Errorf("show item %q: %w", barcode, err)
	}
	printItem(out, item)
	return nil
}

func printItem(out io.Writer, it *db.Item) {
	fmt.Fprintf(out, "%s %d %s %s\n", it.Name, it.Price, it.Description, it.Barcode)
}
