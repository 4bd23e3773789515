package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
	"github.com/smallbiznis/frontdesk/internal/room/domain"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	References referencedomain.Service
	AuditSvc   auditdomain.Service
	Metrics    *metrics.FrontDeskMetrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       domain.Repository
	references referencedomain.Service
	auditSvc   auditdomain.Service
	metrics    *metrics.FrontDeskMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("room.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		references: p.References,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRoomRequest) (domain.Room, error) {
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return domain.Room{}, domain.ErrInvalidNumber
	}

	roomType, err := s.references.GetRoomType(ctx, req.RoomTypeID)
	if err != nil || !roomType.Active {
		return domain.Room{}, referenceError(err, domain.ErrInvalidRoomType)
	}
	price, err := s.references.GetPrice(ctx, req.PriceID)
	if err != nil || !price.Active {
		return domain.Room{}, referenceError(err, domain.ErrInvalidPrice)
	}
	if req.FloorID != nil {
		if _, err := s.references.GetFloor(ctx, *req.FloorID); err != nil {
			return domain.Room{}, err
		}
	}
	if req.BlockID != nil {
		if _, err := s.references.GetBlock(ctx, *req.BlockID); err != nil {
			return domain.Room{}, err
		}
	}

	status := domain.StatusAvailable
	active := true
	if strings.TrimSpace(req.Status) != "" {
		parsed, disabled, err := domain.ParseStatus(req.Status, s.policy.Get().StatusSynonyms.Room)
		if err != nil {
			return domain.Room{}, err
		}
		if disabled {
			active = false
		} else {
			status = parsed
		}
	}
	if status == domain.StatusOccupied {
		// occupancy only comes from a stay
		return domain.Room{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	room := domain.Room{
		ID:         s.genID.Generate(),
		Number:     number,
		RoomTypeID: roomType.ID,
		PriceID:    price.ID,
		FloorID:    req.FloorID,
		BlockID:    req.BlockID,
		Status:     status,
		Active:     active,
		Notes:      strings.TrimSpace(req.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &room); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Room{}, domain.ErrNumberTaken
		}
		return domain.Room{}, err
	}
	return room, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.RoomDetail, error) {
	if id == 0 {
		return domain.RoomDetail{}, domain.ErrInvalidID
	}
	detail, err := s.repo.FindDetail(ctx, s.db, id)
	if err != nil {
		return domain.RoomDetail{}, err
	}
	if detail == nil {
		return domain.RoomDetail{}, domain.ErrNotFound
	}
	return *detail, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRoomRequest) ([]domain.RoomDetail, error) {
	filter := domain.ListFilter{
		Active:     req.Active,
		FloorID:    req.FloorID,
		BlockID:    req.BlockID,
		RoomTypeID: req.RoomTypeID,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, disabled, err := domain.ParseStatus(req.Status, s.policy.Get().StatusSynonyms.Room)
		if err != nil {
			return nil, err
		}
		if disabled {
			inactive := false
			filter.Active = &inactive
		} else {
			filter.Status = status
		}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	rooms := make([]domain.RoomDetail, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rooms = append(rooms, *item)
	}
	return rooms, nil
}

func (s *Service) ListAvailable(ctx context.Context) ([]domain.RoomDetail, error) {
	active := true
	return s.List(ctx, domain.ListRoomRequest{Status: string(domain.StatusAvailable), Active: &active})
}

func (s *Service) ToggleActive(ctx context.Context, id snowflake.ID, active bool) (domain.Room, error) {
	if id == 0 {
		return domain.Room{}, domain.ErrInvalidID
	}

	var updated domain.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.lockRoom(ctx, tx, id)
		if err != nil {
			return err
		}
		if !active && room.Status == domain.StatusOccupied {
			return domain.ErrRoomOccupied
		}
		if room.Active == active {
			updated = *room
			return nil
		}

		now := s.clock.Now()
		if _, err := s.repo.SetActive(ctx, tx, id, active, now); err != nil {
			return err
		}
		room.Active = active
		room.Version++
		room.UpdatedAt = now
		updated = *room
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}

	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionRoomToggled, "room", &targetID, map[string]any{
		"number": updated.Number,
		"active": active,
	})
	return updated, nil
}

func (s *Service) MarkClean(ctx context.Context, id snowflake.ID) (domain.Room, error) {
	var updated domain.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.Transition(ctx, tx, id, domain.EventMarkClean)
		if err != nil {
			return err
		}
		updated = room
		return nil
	})
	return updated, err
}

// Override forces a status regardless of the transition table. A disabled
// literal takes the room out of service instead.
func (s *Service) Override(ctx context.Context, id snowflake.ID, raw string) (domain.Room, error) {
	if id == 0 {
		return domain.Room{}, domain.ErrInvalidID
	}
	target, disabled, err := domain.ParseStatus(raw, s.policy.Get().StatusSynonyms.Room)
	if err != nil {
		return domain.Room{}, err
	}

	var (
		before  domain.Status
		updated domain.Room
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.lockRoom(ctx, tx, id)
		if err != nil {
			return err
		}
		before = room.Status
		now := s.clock.Now()

		if disabled {
			if _, err := s.repo.SetActive(ctx, tx, id, false, now); err != nil {
				return err
			}
			room.Active = false
			room.Version++
			room.UpdatedAt = now
			updated = *room
			return nil
		}

		if room.Status == target {
			updated = *room
			return nil
		}
		if err := s.compareAndSet(ctx, tx, room, target, domain.EventOverride); err != nil {
			return err
		}
		updated = *room
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}

	s.log.Warn("room status overridden",
		zap.String("room_id", id.String()),
		zap.String("from", string(before)),
		zap.String("to", string(updated.Status)),
		zap.Bool("active", updated.Active),
	)
	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionRoomOverride, "room", &targetID, map[string]any{
		"number": updated.Number,
		"from":   string(before),
		"to":     string(updated.Status),
		"active": updated.Active,
	})
	return updated, nil
}

func (s *Service) Transition(ctx context.Context, tx *gorm.DB, id snowflake.ID, event domain.Event) (domain.Room, error) {
	if tx == nil {
		tx = s.db
	}
	if id == 0 {
		return domain.Room{}, domain.ErrInvalidID
	}

	room, err := s.lockRoom(ctx, tx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if domain.RequiresActive(event) && !room.Active {
		s.recordConflict(event, metrics.ConflictRoomUnavailable)
		return domain.Room{}, domain.ErrRoomInactive
	}

	next, err := domain.Next(room.Status, event)
	if err != nil {
		if errors.Is(err, domain.ErrRoomUnavailable) || errors.Is(err, domain.ErrInvalidTransition) {
			s.recordConflict(event, metrics.ConflictRoomUnavailable)
		}
		return domain.Room{}, err
	}
	if err := s.compareAndSet(ctx, tx, room, next, event); err != nil {
		return domain.Room{}, err
	}
	return *room, nil
}

func (s *Service) LockDetail(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.RoomDetail, error) {
	if tx == nil {
		tx = s.db
	}
	if _, err := s.lockRoom(ctx, tx, id); err != nil {
		return domain.RoomDetail{}, err
	}
	detail, err := s.repo.FindDetail(ctx, tx, id)
	if err != nil {
		return domain.RoomDetail{}, err
	}
	if detail == nil {
		return domain.RoomDetail{}, domain.ErrNotFound
	}
	return *detail, nil
}

func (s *Service) lockRoom(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	room, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrNotFound
	}
	return room, nil
}

// compareAndSet writes next onto room and updates it in place. Losing the
// race against another writer surfaces as ErrStatusConflict.
func (s *Service) compareAndSet(ctx context.Context, tx *gorm.DB, room *domain.Room, next domain.Status, event domain.Event) error {
	now := s.clock.Now()
	affected, err := s.repo.CompareAndSetStatus(ctx, tx, room.ID, room.Status, room.Version, next, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.recordConflict(event, metrics.ConflictRoomStatusChanged)
		return domain.ErrStatusConflict
	}

	s.metrics.RoomTransition(string(room.Status), string(next), string(event))
	room.Status = next
	room.Version++
	room.UpdatedAt = now
	return nil
}

func (s *Service) recordConflict(event domain.Event, reason string) {
	s.metrics.Conflict("room."+string(event), reason)
}

func referenceError(err error, fallback error) error {
	if err == nil || errors.Is(err, referencedomain.ErrNotFound) || errors.Is(err, referencedomain.ErrInvalidID) {
		return fallback
	}
	return err
}
