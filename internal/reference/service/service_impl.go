package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/reference/domain"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"github.com/smallbiznis/frontdesk/pkg/db/option"
	"github.com/smallbiznis/frontdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.PolicyHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.PolicyHolder

	roomTypes repository.Repository[domain.RoomType]
	prices    repository.Repository[domain.Price]
	floors    repository.Repository[domain.Floor]
	blocks    repository.Repository[domain.Block]
	services  repository.Repository[domain.ServiceItem]
	schedules repository.Repository[domain.Schedule]
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("reference.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,

		roomTypes: repository.ProvideStore[domain.RoomType](p.DB),
		prices:    repository.ProvideStore[domain.Price](p.DB),
		floors:    repository.ProvideStore[domain.Floor](p.DB),
		blocks:    repository.ProvideStore[domain.Block](p.DB),
		services:  repository.ProvideStore[domain.ServiceItem](p.DB),
		schedules: repository.ProvideStore[domain.Schedule](p.DB),
	}
}

func (s *Service) ListRoomTypes(ctx context.Context, req domain.ListRequest) ([]domain.RoomType, error) {
	return list(ctx, s.roomTypes, req, "name asc")
}

func (s *Service) GetRoomType(ctx context.Context, id snowflake.ID) (domain.RoomType, error) {
	return get(ctx, s.roomTypes, id)
}

func (s *Service) CreateRoomType(ctx context.Context, req domain.CreateRoomTypeRequest) (domain.RoomType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.RoomType{}, domain.ErrInvalidName
	}
	if req.Capacity < 1 {
		return domain.RoomType{}, domain.ErrInvalidCapacity
	}
	code, err := codeFor(req.Code, name)
	if err != nil {
		return domain.RoomType{}, err
	}

	now := s.clock.Now()
	item := domain.RoomType{
		ID:          s.genID.Generate(),
		Name:        name,
		Code:        code,
		Capacity:    req.Capacity,
		Description: strings.TrimSpace(req.Description),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := create(ctx, s.roomTypes, &item, "name", name, "code", code); err != nil {
		return domain.RoomType{}, err
	}
	return item, nil
}

func (s *Service) ListPrices(ctx context.Context, req domain.ListRequest) ([]domain.Price, error) {
	return list(ctx, s.prices, req, "amount asc, label asc")
}

func (s *Service) GetPrice(ctx context.Context, id snowflake.ID) (domain.Price, error) {
	return get(ctx, s.prices, id)
}

func (s *Service) CreatePrice(ctx context.Context, req domain.CreatePriceRequest) (domain.Price, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return domain.Price{}, domain.ErrInvalidLabel
	}
	if req.Amount <= 0 {
		return domain.Price{}, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.policy.Get().Currency
	}
	if len(currency) != 3 {
		return domain.Price{}, domain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	item := domain.Price{
		ID:        s.genID.Generate(),
		Label:     label,
		Amount:    req.Amount,
		Currency:  currency,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := create(ctx, s.prices, &item, "label", label); err != nil {
		return domain.Price{}, err
	}
	return item, nil
}

func (s *Service) ListFloors(ctx context.Context, req domain.ListRequest) ([]domain.Floor, error) {
	return list(ctx, s.floors, req, "number asc, name asc")
}

func (s *Service) GetFloor(ctx context.Context, id snowflake.ID) (domain.Floor, error) {
	return get(ctx, s.floors, id)
}

func (s *Service) CreateFloor(ctx context.Context, req domain.CreateFloorRequest) (domain.Floor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Floor{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	item := domain.Floor{
		ID:        s.genID.Generate(),
		Name:      name,
		Number:    req.Number,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := create(ctx, s.floors, &item, "name", name); err != nil {
		return domain.Floor{}, err
	}
	return item, nil
}

func (s *Service) ListBlocks(ctx context.Context, req domain.ListRequest) ([]domain.Block, error) {
	return list(ctx, s.blocks, req, "name asc")
}

func (s *Service) GetBlock(ctx context.Context, id snowflake.ID) (domain.Block, error) {
	return get(ctx, s.blocks, id)
}

func (s *Service) CreateBlock(ctx context.Context, req domain.CreateBlockRequest) (domain.Block, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Block{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	item := domain.Block{
		ID:        s.genID.Generate(),
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := create(ctx, s.blocks, &item, "name", name); err != nil {
		return domain.Block{}, err
	}
	return item, nil
}

func (s *Service) ListServices(ctx context.Context, req domain.ListRequest) ([]domain.ServiceItem, error) {
	return list(ctx, s.services, req, "name asc")
}

func (s *Service) GetService(ctx context.Context, id snowflake.ID) (domain.ServiceItem, error) {
	return get(ctx, s.services, id)
}

func (s *Service) CreateService(ctx context.Context, req domain.CreateServiceRequest) (domain.ServiceItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ServiceItem{}, domain.ErrInvalidName
	}
	if req.Price <= 0 {
		return domain.ServiceItem{}, domain.ErrInvalidPrice
	}
	code, err := codeFor(req.Code, name)
	if err != nil {
		return domain.ServiceItem{}, err
	}

	now := s.clock.Now()
	item := domain.ServiceItem{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		Price:     req.Price,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := create(ctx, s.services, &item, "name", name, "code", code); err != nil {
		return domain.ServiceItem{}, err
	}
	return item, nil
}

func (s *Service) ListSchedules(ctx context.Context, req domain.ListRequest) ([]domain.Schedule, error) {
	return list(ctx, s.schedules, req, "name asc")
}

func (s *Service) GetSchedule(ctx context.Context, id snowflake.ID) (domain.Schedule, error) {
	return get(ctx, s.schedules, id)
}

func (s *Service) CreateSchedule(ctx context.Context, req domain.CreateScheduleRequest) (domain.Schedule, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Schedule{}, domain.ErrInvalidName
	}
	if _, _, err := domain.ParseClock(req.CheckInTime); err != nil {
		return domain.Schedule{}, domain.ErrInvalidCheckInTime
	}
	if _, _, err := domain.ParseClock(req.CheckOutTime); err != nil {
		return domain.Schedule{}, domain.ErrInvalidCheckOutTime
	}
	if req.EntryToleranceMinutes < 0 || req.ExitToleranceMinutes < 0 {
		return domain.Schedule{}, domain.ErrInvalidTolerance
	}
	code, err := codeFor(req.Code, name)
	if err != nil {
		return domain.Schedule{}, err
	}

	now := s.clock.Now()
	item := domain.Schedule{
		ID:                    s.genID.Generate(),
		Name:                  name,
		Code:                  code,
		CheckInTime:           strings.TrimSpace(req.CheckInTime),
		CheckOutTime:          strings.TrimSpace(req.CheckOutTime),
		EntryToleranceMinutes: req.EntryToleranceMinutes,
		ExitToleranceMinutes:  req.ExitToleranceMinutes,
		Active:                true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := create(ctx, s.schedules, &item, "name", name, "code", code); err != nil {
		return domain.Schedule{}, err
	}
	return item, nil
}

func (s *Service) ToggleActive(ctx context.Context, kind domain.Kind, id snowflake.ID, active bool) error {
	if id == 0 {
		return domain.ErrInvalidID
	}

	fields := map[string]any{
		"active":     active,
		"updated_at": s.clock.Now(),
	}

	var (
		affected int64
		err      error
	)
	switch kind {
	case domain.KindRoomType:
		affected, err = s.roomTypes.Update(ctx, id, fields)
	case domain.KindPrice:
		affected, err = s.prices.Update(ctx, id, fields)
	case domain.KindFloor:
		affected, err = s.floors.Update(ctx, id, fields)
	case domain.KindBlock:
		affected, err = s.blocks.Update(ctx, id, fields)
	case domain.KindService:
		affected, err = s.services.Update(ctx, id, fields)
	case domain.KindSchedule:
		affected, err = s.schedules.Update(ctx, id, fields)
	default:
		return domain.ErrInvalidKind
	}
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.log.Info("reference record toggled",
		zap.String("kind", string(kind)),
		zap.String("id", id.String()),
		zap.Bool("active", active),
	)
	return nil
}

func list[T any](ctx context.Context, store repository.Repository[T], req domain.ListRequest, order string) ([]T, error) {
	opts := []option.QueryOption{option.WithOrder(order)}
	if req.ActiveOnly {
		opts = append(opts, option.WithActive())
	}
	items, err := store.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func get[T any](ctx context.Context, store repository.Repository[T], id snowflake.ID) (T, error) {
	var zero T
	if id == 0 {
		return zero, domain.ErrInvalidID
	}
	item, err := store.FindOne(ctx, nil, option.WithWhere("id = ?", id))
	if err != nil {
		return zero, err
	}
	if item == nil {
		return zero, domain.ErrNotFound
	}
	return *item, nil
}

// create inserts item after checking the given column/value pairs for
// case-insensitive duplicates.
func create[T any](ctx context.Context, store repository.Repository[T], item *T, uniques ...string) error {
	for i := 0; i+1 < len(uniques); i += 2 {
		count, err := store.Count(ctx, nil, option.WithWhere("LOWER("+uniques[i]+") = LOWER(?)", uniques[i+1]))
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicate
		}
	}

	if err := store.Create(ctx, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func codeFor(raw, name string) (string, error) {
	code := slug.Make(strings.TrimSpace(raw))
	if code == "" {
		code = slug.Make(name)
	}
	if code == "" {
		return "", domain.ErrInvalidCode
	}
	return code, nil
}

