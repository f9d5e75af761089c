package commands

import (
	"context"
	"time"

	"github.com/bookstore/services/market/internal/db"
	"github.com/bookstore/services/market/internal/events"
	"github.com/bookstore/services/market/internal/fixtures"
	"github.com/bookstore/services/market/internal/metrics"
	"github.com/bookstore/services/market/internal/security"
	"github.com/bookstore/services/market/internal/seed"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

// newSeedCmd builds the destructive seeding command.
func newSeedCmd(a *app) *cobra.Command {
	var fixturesPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Drop, recreate and populate the market store",
		Long: `seed drops every market table, recreates the schema and loads the
fixture users and items. Existing data is lost without confirmation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fixturesPath == "" {
				fixturesPath = a.cfg.FixturesFile
			}
			set, err := fixtures.Load(fixturesPath)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			ctx := events.WithCorrelationID(cmd.Context(), runID)
			log := a.log.With(zap.String("run_id", runID))

			publisher := a.publisher(log)
			defer publisher.Close()

			m := metrics.NewSeedMetrics()
			seeder := seed.NewSeeder(set, security.NewHasher(a.cfg.BcryptCost), publisher, m, cmd.OutOrStdout(), log)

			err = db.Scope(ctx, a.cfg.Database, log, func(ctx context.Context, database *db.DB) error {
				summary, err := seeder.Run(ctx, database)
				if err != nil {
					return err
				}
				log.Info("Market seeded",
					zap.Int("users", summary.Users),
					zap.Int("items", summary.Items),
					zap.String("owner", summary.Owner),
				)
				return nil
			})

			a.pushMetrics(m, log)
			return err
		},
	}

	cmd.Flags().StringVar(&fixturesPath, "fixtures", "", "YAML fixtures file (default: built-in market fixtures)")
	return cmd
}

type eventPublisher interface {
	seed.EventPublisher
	IsHealthy() bool
	Close() error
}

// publisher connects to RabbitMQ when configured. Without a broker URL events
// are discarded; an unreachable broker drops events and reports unhealthy.
func (a *app) publisher(log *zap.Logger) eventPublisher {
	if a.cfg.RabbitMQURL == "" {
		return events.Discard{}
	}
	p, err := events.NewPublisher(a.cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("Event publisher unavailable, events disabled", zap.Error(err))
		return events.Unavailable{Err: err}
	}
	return p
}

func (a *app) pushMetrics(m *metrics.SeedMetrics, log *zap.Logger) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := m.Push(ctx, a.cfg.PushgatewayURL, a.cfg.ServiceName+"_seed"); err != nil {
		log.Warn("Failed to push metrics", zap.Error(err))
	}
}
