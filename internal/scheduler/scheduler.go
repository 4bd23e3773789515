package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	obsmetrics "github.com/smallbiznis/frontdesk/internal/observability/metrics"
	registerdomain "github.com/smallbiznis/frontdesk/internal/register/domain"
	reservationdomain "github.com/smallbiznis/frontdesk/internal/reservation/domain"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobReleaseNoShows     = "release_no_shows"
	JobOccupancySnapshot  = "occupancy_snapshot"
	outcomeOK             = "ok"
	outcomeError          = "error"
	outcomeTimeout        = "timeout"
	maxNoShowPagesPerPass = 20
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log            *zap.Logger
	Clock          clock.Clock
	GenID          *snowflake.Node
	ReservationSvc reservationdomain.Service
	StaySvc        staydomain.Service
	RegisterSvc    registerdomain.Service
	Metrics        *obsmetrics.FrontDeskMetrics `optional:"true"`
	Config         Config                       `optional:"true"`
}

// Scheduler runs the front desk's periodic housekeeping.
type Scheduler struct {
	log            *zap.Logger
	cfg            Config
	genID          *snowflake.Node
	clock          clock.Clock
	reservationSvc reservationdomain.Service
	staySvc        staydomain.Service
	registerSvc    registerdomain.Service
	metrics        *obsmetrics.FrontDeskMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.ReservationSvc == nil || p.StaySvc == nil || p.RegisterSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:            p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:            p.Config.withDefaults(),
		genID:          p.GenID,
		clock:          p.Clock,
		reservationSvc: p.ReservationSvc,
		staySvc:        p.StaySvc,
		registerSvc:    p.RegisterSvc,
		metrics:        p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}

	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		s.metrics.JobRun(name, outcomeOK, elapsed)
		return nil
	}

	// deadline is a soft timeout; the next pass picks up the rest
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.JobRun(name, outcomeTimeout, elapsed)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.metrics.JobRun(name, outcomeError, elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobReleaseNoShows, s.ReleaseNoShowsJob},
		{JobOccupancySnapshot, s.OccupancySnapshotJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ReleaseNoShowsJob cancels pending and confirmed reservations whose arrival
// passed more than NoShowGrace ago, returning held rooms to available.
func (s *Scheduler) ReleaseNoShowsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	cutoff := s.clock.Now().Add(-s.cfg.NoShowGrace)

	for _, status := range []reservationdomain.Status{reservationdomain.StatusPending, reservationdomain.StatusConfirmed} {
		if err := s.releaseNoShows(ctx, run, status, cutoff); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) releaseNoShows(ctx context.Context, run *jobRun, status reservationdomain.Status, cutoff time.Time) error {
	pageToken := ""
	for page := 0; page < maxNoShowPagesPerPass; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := s.reservationSvc.List(ctx, reservationdomain.ListRequest{
			Pagination: pagination.Pagination{PageToken: pageToken, PageSize: s.cfg.BatchSize},
			Status:     string(status),
			To:         &cutoff,
		})
		if err != nil {
			return err
		}

		for _, reservation := range resp.Reservations {
			if _, err := s.reservationSvc.Cancel(ctx, reservation.ID); err != nil {
				if errors.Is(err, reservationdomain.ErrStatusConflict) || errors.Is(err, reservationdomain.ErrNotFound) {
					continue
				}
				s.logJobError(ctx, run, "failed to release no-show reservation", err,
					zap.String("reservation_id", reservation.ID.String()),
				)
				continue
			}
			run.AddProcessed(1)
			s.logger(ctx).Info("no-show reservation released",
				zap.String("reservation_id", reservation.ID.String()),
				zap.Time("arrival_at", reservation.ArrivalAt),
				zap.String("previous_status", string(status)),
			)
		}

		if !resp.HasMore || resp.NextPageToken == "" {
			return nil
		}
		pageToken = resp.NextPageToken
	}
	return nil
}

// OccupancySnapshotJob refreshes the active-stay and register-blocking gauges
// so they stay current on a quiet desk.
func (s *Scheduler) OccupancySnapshotJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	active, err := s.staySvc.ListActive(ctx, staydomain.ListFilter{})
	if err != nil {
		return err
	}
	s.metrics.SetActiveStays(len(active))

	check, err := s.registerSvc.Check(ctx)
	if err != nil {
		return err
	}
	s.metrics.SetRegisterBlocking(len(check.Blocking))
	run.AddProcessed(len(active))

	log := s.logger(ctx).With(
		zap.Int("active_stays", len(active)),
		zap.Int("register_blocking", len(check.Blocking)),
	)
	if !check.CanGenerate {
		log.Warn("register blocked by incomplete guest profiles")
		return nil
	}
	log.Debug("occupancy snapshot")
	return nil
}
