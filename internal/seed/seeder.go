// Package seed populates the market store with fixture data and prints
// read-back lines for manual verification.
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bookstore/services/market/internal/db"
	"github.com/bookstore/services/market/internal/fixtures"
	"github.com/bookstore/services/market/internal/metrics"
	"github.com/bookstore/services/market/internal/repo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName     = "github.com/bookstore/services/market/internal/seed"
	publishTimeout = 10 * time.Second
)

// PasswordHasher turns plain fixture passwords into stored hashes.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// EventPublisher announces seeding results.
type EventPublisher interface {
	PublishMarketSeeded(ctx context.Context, users, items, owned int64) error
	PublishOwnerAssigned(ctx context.Context, barcode, name, owner string) error
}

// Summary describes what a seeding run committed.
type Summary struct {
	Users int
	Items int
	// Owner is the username assigned to the fixture item, "" when skipped.
	Owner string
}

// Seeder runs the destructive seeding procedure.
type Seeder struct {
	fixtures  *fixtures.Set
	hasher    PasswordHasher
	publisher EventPublisher
	metrics   *metrics.SeedMetrics
	out       io.Writer
	log       *zap.Logger
	tracer    trace.Tracer
}

// NewSeeder creates a seeder writing its report lines to out. publisher and
// m may be nil.
func NewSeeder(set *fixtures.Set, hasher PasswordHasher, publisher EventPublisher, m *metrics.SeedMetrics, out io.Writer, log *zap.Logger) *Seeder {
	return &Seeder{
		fixtures:  set,
		hasher:    hasher,
		publisher: publisher,
		metrics:   m,
		out:       out,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}
}

// Run resets the schema of database and loads the fixtures into it.
// Each insert step commits on its own, so a failure keeps earlier commits.
func (s *Seeder) Run(ctx context.Context, database *db.DB) (summary *Summary, err error) {
	ctx, span := s.tracer.Start(ctx, "seed.Run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if s.metrics != nil {
			s.metrics.RunFinished(err)
		}
	}()

	marketRepo := repo.NewMarketRepository(database, s.log)
	summary = &Summary{}

	if err := s.step(ctx, "reset_schema", func(ctx context.Context) error {
		return db.Reset(ctx, database)
	}); err != nil {
		return summary, err
	}
	s.log.Warn("Schema reset, previous market data dropped")

	if err := s.step(ctx, "create_users", func(ctx context.Context) error {
		users, err := s.buildUsers()
		if err != nil {
			return err
		}
		if err := marketRepo.CreateUsers(ctx, users...); err != nil {
			return err
		}
		summary.Users = len(users)
		s.countRows("users", len(users))
		return nil
	}); err != nil {
		return summary, err
	}

	if err := s.step(ctx, "read_users", func(ctx context.Context) error {
		users, err := marketRepo.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(s.out, "001 - User name: %s\n", u.Username)
		}
		return nil
	}); err != nil {
		return summary, err
	}

	items := s.buildItems()
	if err := s.step(ctx, "create_items", func(ctx context.Context) error {
		if err := marketRepo.CreateItems(ctx, items...); err != nil {
			return err
		}
		summary.Items = len(items)
		s.countRows("items", len(items))
		return nil
	}); err != nil {
		return summary, err
	}

	if err := s.step(ctx, "read_items", func(ctx context.Context) error {
		stored, err := marketRepo.ListItems(ctx)
		if err != nil {
			return err
		}
		for _, it := range stored {
			fmt.Fprintf(s.out, "002 - Item name: %s\n", it.Name)
		}
		return nil
	}); err != nil {
		return summary, err
	}

	priceCheck := s.fixtures.PriceCheck
	if priceCheck == "" {
		priceCheck = fixtures.DefaultPriceCheck
	}
	if err := s.step(ctx, "read_prices", func(ctx context.Context) error {
		matches, err := marketRepo.FindItemsByName(ctx, priceCheck)
		if err != nil {
			return err
		}
		for _, it := range matches {
			fmt.Fprintf(s.out, "003 - %s price: %d\n", strings.ToLower(priceCheck), it.Price)
		}
		return nil
	}); err != nil {
		return summary, err
	}

	assignment := s.fixtures.Assignment
	if assignment.IsZero() {
		s.publishSeeded(ctx, marketRepo)
		return summary, nil
	}
	label := strings.ToLower(assignment.Item)

	var target *db.Item
	if err := s.step(ctx, "assign_owner", func(ctx context.Context) error {
		target = findByName(items, assignment.Item)
		if target == nil {
			return fmt.Errorf("%w: %s", repo.ErrItemNotFound, assignment.Item)
		}
		return marketRepo.AssignOwner(ctx, target, assignment.Username)
	}); err != nil {
		return summary, fmt.Errorf("assign owner %q to %q: %w", assignment.Username, assignment.Item, err)
	}
	summary.Owner = target.OwnerName()

	fmt.Fprintf(s.out, "004 - owner of %s: %s\n", label, target.OwnerName())

	s.publishOwnerAssigned(ctx, target)
	s.publishSeeded(ctx, marketRepo)
	return summary, nil
}

// step runs fn inside a child span and records its duration.
func (s *Seeder) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "seed."+name, trace.WithAttributes(attribute.String("seed.step", name)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveStep(name, start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("Seeding step failed", zap.String("step", name), zap.Error(err))
		return err
	}
	s.log.Debug("Seeding step completed", zap.String("step", name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) buildUsers() ([]*db.User, error) {
	users := make([]*db.User, 0, len(s.fixtures.Users))
	for _, u := range s.fixtures.Users {
		hash, err := s.hasher.HashPassword(u.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", u.Username, err)
		}
		users = append(users, &db.User{
			Username:     u.Username,
			PasswordHash: hash,
			EmailAddress: u.EmailAddress,
		})
	}
	return users, nil
}

func (s *Seeder) buildItems() []*db.Item {
	items := make([]*db.Item, 0, len(s.fixtures.Items))
	for _, it := range s.fixtures.Items {
		items = append(items, &db.Item{
			Name:        it.Name,
			Price:       it.Price,
			Barcode:     it.Barcode,
			Description: it.Description,
		})
	}
	return items
}

func (s *Seeder) countRows(table string, n int) {
	if s.metrics != nil {
		s.metrics.RowsInserted.WithLabelValues(table).Add(float64(n))
	}
}

// Event delivery is best effort: the store is already committed.
func (s *Seeder) publishOwnerAssigned(ctx context.Context, item *db.Item) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.PublishOwnerAssigned(ctx, item.Barcode, item.Name, item.OwnerName()); err != nil {
		s.log.Error("Failed to publish owner assigned event", zap.String("barcode", item.Barcode), zap.Error(err))
	}
}

func (s *Seeder) publishSeeded(ctx context.Context, marketRepo *repo.MarketRepository) {
	if s.publisher == nil {
		return
	}
	users, items, owned, err := marketRepo.GetStats(ctx)
	if err != nil {
		s.log.Error("Failed to read store stats", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.PublishMarketSeeded(ctx, users, items, owned); err != nil {
		s.log.Error("Failed to publish market seeded event", zap.Error(err))
	}
}

// findByName returns the first in-memory item called name.
func findByName(items []*db.Item, name string) *db.Item {
	for _, it := range items {
		if it.Name == name {
			return it
		}
	}
	return nil
}
