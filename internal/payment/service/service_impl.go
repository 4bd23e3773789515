package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Policy  *config.PolicyHolder
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.PolicyHolder
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, req domain.RecordRequest) (domain.Payment, bool, error) {
	tx = s.conn(tx)

	hasStay := req.StayID != nil && *req.StayID != 0
	hasReservation := req.ReservationID != nil && *req.ReservationID != 0
	if hasStay == hasReservation {
		return domain.Payment{}, false, domain.ErrInvalidTarget
	}
	if req.Amount <= 0 {
		return domain.Payment{}, false, domain.ErrInvalidAmount
	}
	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		return domain.Payment{}, false, err
	}
	direction, err := domain.ParseDirection(req.Direction)
	if err != nil {
		return domain.Payment{}, false, err
	}
	bank := strings.TrimSpace(req.Bank)
	if method == domain.MethodQR && !s.policy.Get().AcceptsQRBank(bank) {
		return domain.Payment{}, false, domain.ErrInvalidBank
	}

	var key *string
	if trimmed := strings.TrimSpace(req.IdempotencyKey); trimmed != "" {
		key = &trimmed
		existing, err := s.repo.FindByIdempotencyKey(ctx, tx, trimmed)
		if err != nil {
			return domain.Payment{}, false, err
		}
		if existing != nil {
			return s.replay(*existing, req)
		}
	}

	staffID, _ := obscontext.StaffFromContext(ctx)
	payment := domain.Payment{
		ID:             s.genID.Generate(),
		Amount:         req.Amount,
		Method:         method,
		Bank:           bank,
		Description:    strings.TrimSpace(req.Description),
		Direction:      direction,
		IdempotencyKey: key,
		CreatedBy:      staffID,
		CreatedAt:      s.clock.Now(),
	}
	if hasStay {
		payment.StayID = req.StayID
	} else {
		payment.ReservationID = req.ReservationID
	}

	inserted, err := s.repo.Insert(ctx, tx, &payment)
	if err != nil {
		return domain.Payment{}, false, err
	}
	if !inserted {
		if key == nil {
			return domain.Payment{}, false, domain.ErrIdempotencyReuse
		}
		// a concurrent request with the same key committed first
		existing, err := s.repo.FindByIdempotencyKey(ctx, tx, *key)
		if err != nil {
			return domain.Payment{}, false, err
		}
		if existing == nil {
			return domain.Payment{}, false, domain.ErrIdempotencyReuse
		}
		return s.replay(*existing, req)
	}

	s.metrics.RecordPayment(ctx, string(method), string(direction), payment.Amount)
	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("method", string(method)),
		zap.String("direction", string(direction)),
		zap.Int64("amount", payment.Amount),
	)
	return payment, false, nil
}

// replay returns the stored payment when the replayed request targets the
// same stay or reservation with the same amount.
func (s *Service) replay(existing domain.Payment, req domain.RecordRequest) (domain.Payment, bool, error) {
	sameTarget := equalID(existing.StayID, req.StayID) && equalID(existing.ReservationID, req.ReservationID)
	if !sameTarget || existing.Amount != req.Amount {
		return domain.Payment{}, false, domain.ErrIdempotencyReuse
	}
	return existing, true, nil
}

func (s *Service) ListByStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) ([]domain.Payment, error) {
	items, err := s.repo.ListByStay(ctx, s.conn(tx), stayID)
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func (s *Service) ListByReservation(ctx context.Context, tx *gorm.DB, reservationID snowflake.ID) ([]domain.Payment, error) {
	items, err := s.repo.ListByReservation(ctx, s.conn(tx), reservationID)
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func (s *Service) SumForStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (domain.Totals, error) {
	payments, err := s.ListByStay(ctx, tx, stayID)
	if err != nil {
		return domain.Totals{}, err
	}
	return sum(payments), nil
}

func (s *Service) SumForReservation(ctx context.Context, tx *gorm.DB, reservationID snowflake.ID) (domain.Totals, error) {
	payments, err := s.ListByReservation(ctx, tx, reservationID)
	if err != nil {
		return domain.Totals{}, err
	}
	return sum(payments), nil
}

func (s *Service) CountByStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (int64, error) {
	return s.repo.CountByStay(ctx, s.conn(tx), stayID)
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return s.db
	}
	return tx
}

func sum(payments []domain.Payment) domain.Totals {
	var totals domain.Totals
	for _, p := range payments {
		if p.Direction == domain.DirectionRefund {
			totals.Out += p.Amount
			continue
		}
		totals.In += p.Amount
	}
	return totals
}

func flatten(items []*domain.Payment) []domain.Payment {
	out := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func equalID(a, b *snowflake.ID) bool {
	av, bv := snowflake.ID(0), snowflake.ID(0)
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}
