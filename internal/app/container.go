package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/auth"
	"github.com/spec-kit/helpdesk-portal/internal/config"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/mailer"
	"github.com/spec-kit/helpdesk-portal/internal/observability"
	"github.com/spec-kit/helpdesk-portal/internal/persistence"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
	"github.com/spec-kit/helpdesk-portal/internal/service"
	"github.com/spec-kit/helpdesk-portal/internal/sla"
	"github.com/spec-kit/helpdesk-portal/internal/worker"
)

// Container holds the wired services shared by the API server and the CLI.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher

	Profiles repository.ProfileRepository
	Tokens   *auth.TokenManager

	Tickets       *service.TicketService
	Approvals     *service.ApprovalService
	Assignments   *service.AssignmentService
	Escalations   *service.EscalationService
	Notifications *service.NotificationService
}

// Build connects to the stores and wires every service. Call Close when done.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pool := pg.PoolHandle()
	if pool == nil {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(pool, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	loc, err := cfg.Escalation.Location()
	if err != nil {
		pg.Close()
		return nil, err
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger, true)

	store := repository.NewStore(pool)
	profiles := repository.NewProfileRepository(pool)
	teams := repository.NewTeamRepository(pool)

	tickets := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		ProfileRepo: profiles,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	approvals := service.NewApprovalService(service.ApprovalDependencies{
		Store:       store,
		ProfileRepo: profiles,
		TeamRepo:    teams,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		TicketService: tickets,
		ProfileRepo:   profiles,
	})
	escalations := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo: store.Tickets(),
		Marker:     redis,
		Dispatcher: dispatcher,
		Policy: sla.Policy{
			WarningDays:                   cfg.Escalation.WarningDays,
			CriticalDays:                  cfg.Escalation.CriticalDays,
			UnassignedNotifyThresholdDays: cfg.Escalation.UnassignedNotifyThresholdDays,
		},
		Location:  loc,
		DedupeTTL: cfg.Escalation.DedupeTTL(),
		Logger:    logger,
	})

	smtp := mailer.NewSMTPMailer(cfg.Notification, logger)
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification, smtp, profiles)
	worker.StartNotificationWorker(dispatcher, notifications, metrics)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Postgres:      pg,
		Redis:         redis,
		Metrics:       metrics,
		Dispatcher:    dispatcher,
		Profiles:      profiles,
		Tokens:        auth.NewTokenManager(cfg.Auth),
		Tickets:       tickets,
		Approvals:     approvals,
		Assignments:   assignments,
		Escalations:   escalations,
		Notifications: notifications,
	}, nil
}

// NewScheduler builds the cron-driven escalation sweep from configuration.
func (c *Container) NewScheduler() (*worker.EscalationScheduler, error) {
	loc, err := c.Config.Escalation.Location()
	if err != nil {
		return nil, err
	}
	return worker.NewEscalationScheduler(worker.SchedulerOptions{
		Schedule: c.Config.Escalation.Schedule,
		Location: loc,
	}, c.Escalations, c.Metrics, c.Logger)
}

// Close waits for in-flight notifications and releases connections.
func (c *Container) Close() {
	c.Dispatcher.Drain()
	c.Redis.Close()
	c.Postgres.Close()
}
