package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("guest.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) FindOrCreate(ctx context.Context, tx *gorm.DB, attrs domain.Attributes) (domain.Guest, bool, error) {
	tx = s.conn(tx)
	identification := normalizeIdentification(attrs.IdentificationNumber)
	if identification == "" {
		return domain.Guest{}, false, domain.ErrInvalidIdentificationNumber
	}

	existing, err := s.repo.FindByIdentification(ctx, tx, identification)
	if err != nil {
		return domain.Guest{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	guest, err := s.Create(ctx, tx, attrs)
	if err != nil {
		return domain.Guest{}, false, err
	}
	return guest, true, nil
}

func (s *Service) Create(ctx context.Context, tx *gorm.DB, attrs domain.Attributes) (domain.Guest, error) {
	tx = s.conn(tx)
	identification := normalizeIdentification(attrs.IdentificationNumber)
	if identification == "" {
		return domain.Guest{}, domain.ErrInvalidIdentificationNumber
	}

	existing, err := s.repo.FindByIdentification(ctx, tx, identification)
	if err != nil {
		return domain.Guest{}, err
	}
	if existing != nil {
		return domain.Guest{}, domain.ErrDuplicateIdentification
	}

	now := s.clock.Now()
	guest := domain.Guest{
		ID:        s.genID.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(&guest, attrs, now); err != nil {
		return domain.Guest{}, err
	}
	guest.IdentificationNumber = identification

	if err := s.repo.Insert(ctx, tx, &guest); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Guest{}, domain.ErrDuplicateIdentification
		}
		return domain.Guest{}, err
	}
	return guest, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Guest, error) {
	if id == 0 {
		return domain.Guest{}, domain.ErrInvalidID
	}
	guest, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Guest{}, err
	}
	if guest == nil {
		return domain.Guest{}, domain.ErrNotFound
	}
	return *guest, nil
}

// GetMany loads every id or fails with ErrNotFound when one is missing.
func (s *Service) GetMany(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]domain.Guest, error) {
	unique := make([]snowflake.ID, 0, len(ids))
	seen := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, domain.ErrInvalidID
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	items, err := s.repo.FindByIDs(ctx, s.conn(tx), unique)
	if err != nil {
		return nil, err
	}
	if len(items) != len(unique) {
		return nil, domain.ErrNotFound
	}

	guests := make([]domain.Guest, 0, len(items))
	for _, item := range items {
		guests = append(guests, *item)
	}
	return guests, nil
}

func (s *Service) List(ctx context.Context, req domain.ListGuestRequest) (domain.ListGuestResponse, error) {
	if req.PageToken != "" {
		if _, err := pagination.DecodeCursor(req.PageToken); err != nil {
			return domain.ListGuestResponse{}, domain.ErrInvalidPageToken
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Name:                 strings.TrimSpace(req.Name),
		IdentificationNumber: normalizeIdentification(req.IdentificationNumber),
		Complete:             req.Complete,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListGuestResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(guest *domain.Guest) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        guest.ID.String(),
			CreatedAt: guest.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	guests := make([]domain.Guest, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		guests = append(guests, *item)
	}

	resp := domain.ListGuestResponse{Guests: guests}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, attrs domain.Attributes) (domain.Guest, error) {
	guest, err := s.Get(ctx, id)
	if err != nil {
		return domain.Guest{}, err
	}

	if identification := normalizeIdentification(attrs.IdentificationNumber); identification != "" && identification != guest.IdentificationNumber {
		other, err := s.repo.FindByIdentification(ctx, s.db, identification)
		if err != nil {
			return domain.Guest{}, err
		}
		if other != nil {
			return domain.Guest{}, domain.ErrDuplicateIdentification
		}
		guest.IdentificationNumber = identification
	}

	now := s.clock.Now()
	if err := s.apply(&guest, attrs, now); err != nil {
		return domain.Guest{}, err
	}
	guest.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, &guest); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Guest{}, domain.ErrDuplicateIdentification
		}
		return domain.Guest{}, err
	}

	targetID := guest.ID.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionGuestProfileUpdated, "guest", &targetID, map[string]any{
		"identification_number": guest.IdentificationNumber,
		"profile_complete":      guest.ProfileComplete,
	})
	return guest, nil
}

// MarkProfileComplete recomputes completeness and reports the blocking
// fields when the profile is still incomplete.
func (s *Service) MarkProfileComplete(ctx context.Context, id snowflake.ID) (domain.Guest, error) {
	guest, err := s.Get(ctx, id)
	if err != nil {
		return domain.Guest{}, err
	}

	missing := domain.MissingFields(guest)
	complete := len(missing) == 0
	if guest.ProfileComplete != complete {
		guest.ProfileComplete = complete
		guest.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, s.db, &guest); err != nil {
			return domain.Guest{}, err
		}
	}
	if !complete {
		return guest, &domain.IncompleteProfileError{Missing: missing}
	}
	return guest, nil
}

// apply copies the non-blank attributes onto guest and recomputes derived
// fields.
func (s *Service) apply(guest *domain.Guest, attrs domain.Attributes, now time.Time) error {
	set := func(dst *string, value string) {
		if v := strings.TrimSpace(value); v != "" {
			*dst = v
		}
	}
	set(&guest.FirstName, attrs.FirstName)
	set(&guest.LastName, attrs.LastName)
	set(&guest.Nationality, attrs.Nationality)
	set(&guest.IssuedIn, attrs.IssuedIn)
	set(&guest.CivilStatus, attrs.CivilStatus)
	set(&guest.Profession, attrs.Profession)
	set(&guest.Origin, attrs.Origin)
	set(&guest.Phone, attrs.Phone)

	if raw := strings.TrimSpace(attrs.BirthDate); raw != "" {
		birth, err := time.Parse(domain.BirthDateLayout, raw)
		if err != nil || birth.After(now) {
			return domain.ErrInvalidBirthDate
		}
		guest.BirthDate = &birth
	}
	if attrs.Age != nil {
		if *attrs.Age <= 0 || *attrs.Age > 130 {
			return domain.ErrInvalidAge
		}
		age := *attrs.Age
		guest.Age = &age
	}
	if guest.BirthDate != nil {
		age := domain.AgeAt(*guest.BirthDate, now)
		guest.Age = &age
	}

	guest.ProfileComplete = len(domain.MissingFields(*guest)) == 0
	return nil
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return s.db
	}
	return tx
}

func normalizeIdentification(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), ""))
}
