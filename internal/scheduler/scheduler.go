package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/centavo-app/centavo-backend/internal/bus"
	"github.com/centavo-app/centavo-backend/internal/domain"
)

// Schedules holds the cron expressions for the recurring jobs
type Schedules struct {
	Rollover    string
	Bills       string
	Snapshots   string
	PriceUpdate string
}

// Scheduler runs the recurring jobs. Per-user jobs fan out one command per
// active user; a failing user is logged and the fan-out continues.
type Scheduler struct {
	cron  *cron.Cron
	bus   *bus.MessageBus
	users domain.UserLister
	log   zerolog.Logger
}

// New creates a scheduler over the bus
func New(b *bus.MessageBus, users domain.UserLister, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		bus:   b,
		users: users,
		log:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the recurring jobs under the given schedules
func (s *Scheduler) Register(schedules Schedules) error {
	jobs := []struct {
		schedule string
		name     string
		run      func(ctx context.Context)
	}{
		{schedules.Rollover, "rollover", s.runRollover},
		{schedules.Bills, "bills", s.runBills},
		{schedules.Snapshots, "snapshots", s.runSnapshots},
		{schedules.PriceUpdate, "price_update", s.runPriceUpdate},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.schedule, func() {
			s.log.Info().Str("job", job.name).Msg("job started")
			job.run(context.Background())
			s.log.Info().Str("job", job.name).Msg("job finished")
		}); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runRollover(ctx context.Context) {
	month := domain.MonthStart(time.Now())
	s.fanOut(ctx, "rollover", func(userID uuid.UUID) domain.Command {
		return domain.RolloverFixedEntities{UserID: userID, Month: month}
	})
}

func (s *Scheduler) runBills(ctx context.Context) {
	today := time.Now()
	s.fanOut(ctx, "bills", func(userID uuid.UUID) domain.Command {
		return domain.SettleCreditCardBills{UserID: userID, Today: today}
	})
}

func (s *Scheduler) runSnapshots(ctx context.Context) {
	month := domain.MonthStart(time.Now())
	s.fanOut(ctx, "snapshots", func(userID uuid.UUID) domain.Command {
		return domain.TakeSnapshots{UserID: userID, Month: month}
	})
}

// runPriceUpdate refreshes shared metadata once; it is not per-user
func (s *Scheduler) runPriceUpdate(ctx context.Context) {
	if err := s.bus.Handle(ctx, domain.UpdateAssetPrices{}); err != nil {
		s.log.Error().Err(err).Msg("price update failed")
	}
}

func (s *Scheduler) fanOut(ctx context.Context, job string, build func(userID uuid.UUID) domain.Command) {
	userIDs, err := s.users.ActiveUserIDs(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("job", job).Msg("failed to list active users")
		return
	}
	for _, userID := range userIDs {
		if err := s.bus.Handle(ctx, build(userID)); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job).
				Str("user_id", userID.String()).
				Msg("job failed for user")
		}
	}
}
