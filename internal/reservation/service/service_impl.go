package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
	"github.com/smallbiznis/frontdesk/internal/reservation/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
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
	Rooms      roomdomain.Service
	Guests     guestdomain.Service
	References referencedomain.Service
	Payments   paymentdomain.Service
	Stays      staydomain.Service
	AuditSvc   auditdomain.Service
	Metrics    *metrics.Metrics          `optional:"true"`
	FrontDesk  *metrics.FrontDeskMetrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       domain.Repository
	rooms      roomdomain.Service
	guests     guestdomain.Service
	references referencedomain.Service
	payments   paymentdomain.Service
	stays      staydomain.Service
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
	frontdesk  *metrics.FrontDeskMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("reservation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		rooms:      p.Rooms,
		guests:     p.Guests,
		references: p.References,
		payments:   p.Payments,
		stays:      p.Stays,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
		frontdesk:  p.FrontDesk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Reservation, error) {
	if req.GuestID == nil && req.Guest == nil {
		return domain.Reservation{}, domain.ErrGuestRequired
	}
	if req.ArrivalAt.IsZero() {
		return domain.Reservation{}, domain.ErrInvalidArrival
	}
	if req.Nights < 1 {
		return domain.Reservation{}, domain.ErrInvalidNights
	}
	if req.GuestCount < 1 {
		return domain.Reservation{}, domain.ErrInvalidGuestCount
	}
	if req.AdvancePayment < 0 {
		return domain.Reservation{}, domain.ErrInvalidAdvance
	}
	if len(req.Rooms) == 0 {
		return domain.Reservation{}, domain.ErrRoomsRequired
	}
	paymentMethod := ""
	if req.AdvancePayment > 0 {
		raw := strings.TrimSpace(req.PaymentMethod)
		if raw == "" {
			raw = string(paymentdomain.MethodCash)
		}
		method, err := paymentdomain.ParseMethod(raw)
		if err != nil {
			return domain.Reservation{}, err
		}
		paymentMethod = string(method)
	}

	// Room lookups run before the transaction opens.
	id := s.genID.Generate()
	seen := make(map[snowflake.ID]struct{}, len(req.Rooms))
	details := make([]domain.Detail, 0, len(req.Rooms))
	capacity := 0
	for _, item := range req.Rooms {
		if item.RoomID == 0 {
			return domain.Reservation{}, roomdomain.ErrInvalidID
		}
		if _, dup := seen[item.RoomID]; dup {
			return domain.Reservation{}, domain.ErrDuplicateRoom
		}
		seen[item.RoomID] = struct{}{}

		room, err := s.rooms.Get(ctx, item.RoomID)
		if err != nil {
			return domain.Reservation{}, err
		}
		if !room.Active {
			return domain.Reservation{}, roomdomain.ErrRoomInactive
		}
		rate := room.Rate
		if item.AgreedRate != nil {
			rate = *item.AgreedRate
		}
		if rate < 0 {
			return domain.Reservation{}, domain.ErrInvalidRate
		}
		capacity += room.Capacity
		details = append(details, domain.Detail{
			ID:            s.genID.Generate(),
			ReservationID: id,
			RoomID:        room.ID,
			PriceID:       room.PriceID,
			AgreedRate:    rate,
		})
	}
	if capacity > 0 && req.GuestCount > capacity {
		return domain.Reservation{}, staydomain.ErrCapacityExceeded
	}

	now := s.clock.Now()
	staffID, _ := obscontext.StaffFromContext(ctx)
	reservation := domain.Reservation{
		ID:             id,
		ArrivalAt:      req.ArrivalAt.UTC(),
		Nights:         req.Nights,
		GuestCount:     req.GuestCount,
		AdvancePayment: req.AdvancePayment,
		PaymentMethod:  paymentMethod,
		Status:         domain.StatusPending,
		Observation:    strings.TrimSpace(req.Observation),
		CreatedBy:      staffID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Details:        details,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guestID, err := s.resolveGuest(ctx, tx, req)
		if err != nil {
			return err
		}
		reservation.GuestID = guestID
		if err := s.repo.Insert(ctx, tx, &reservation); err != nil {
			return err
		}
		return s.repo.InsertDetails(ctx, tx, details)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.log.Info("reservation created",
		zap.String("reservation_id", reservation.ID.String()),
		zap.Int("rooms", len(details)),
		zap.Time("arrival_at", reservation.ArrivalAt),
	)
	return reservation, nil
}

func (s *Service) resolveGuest(ctx context.Context, tx *gorm.DB, req domain.CreateRequest) (snowflake.ID, error) {
	if req.GuestID != nil {
		guests, err := s.guests.GetMany(ctx, tx, []snowflake.ID{*req.GuestID})
		if err != nil {
			return 0, err
		}
		if len(guests) == 0 {
			return 0, guestdomain.ErrNotFound
		}
		return guests[0].ID, nil
	}
	guest, _, err := s.guests.FindOrCreate(ctx, tx, *req.Guest)
	if err != nil {
		return 0, err
	}
	return guest.ID, nil
}

func (s *Service) Confirm(ctx context.Context, id snowflake.ID) (domain.Reservation, error) {
	if id == 0 {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	var (
		reservation *domain.Reservation
		held        []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = s.lock(ctx, tx, id, domain.StatusPending)
		if err != nil {
			return err
		}
		for i, detail := range reservation.Details {
			room, err := s.rooms.LockDetail(ctx, tx, detail.RoomID)
			if err != nil {
				return err
			}
			if !room.Active || room.Status != roomdomain.StatusAvailable {
				continue
			}
			if _, err := s.rooms.Transition(ctx, tx, room.ID, roomdomain.EventHold); err != nil {
				return err
			}
			if err := s.repo.ClaimHold(ctx, tx, detail.ID, room.ID); err != nil {
				return err
			}
			reservation.Details[i].Held = true
			held = append(held, room.ID.String())
		}
		return s.setStatus(ctx, tx, reservation, []domain.Status{domain.StatusPending}, domain.StatusConfirmed)
	})
	if err != nil {
		s.recordConflict("confirm", err)
		return domain.Reservation{}, err
	}

	s.log.Info("reservation confirmed", zap.String("reservation_id", id.String()), zap.Strings("held_rooms", held))
	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionReservationConfirm, "reservation", &targetID, map[string]any{
		"held_rooms": held,
	})
	return *reservation, nil
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (domain.Reservation, error) {
	if id == 0 {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	var (
		reservation *domain.Reservation
		released    []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = s.lock(ctx, tx, id, domain.StatusPending, domain.StatusConfirmed)
		if err != nil {
			return err
		}
		wasConfirmed := reservation.Status == domain.StatusConfirmed
		if err := s.setStatus(ctx, tx, reservation, []domain.Status{domain.StatusPending, domain.StatusConfirmed}, domain.StatusCancelled); err != nil {
			return err
		}
		if !wasConfirmed {
			return nil
		}
		for _, detail := range reservation.Details {
			if !detail.Held {
				continue
			}
			room, err := s.rooms.LockDetail(ctx, tx, detail.RoomID)
			if err != nil {
				return err
			}
			if room.Status != roomdomain.StatusReserved {
				continue
			}
			others, err := s.repo.CountOtherHolds(ctx, tx, room.ID, id)
			if err != nil {
				return err
			}
			if others > 0 {
				continue
			}
			if _, err := s.rooms.Transition(ctx, tx, room.ID, roomdomain.EventRelease); err != nil {
				return err
			}
			released = append(released, room.ID.String())
		}
		return s.repo.ReleaseHolds(ctx, tx, id)
	})
	if err != nil {
		s.recordConflict("cancel", err)
		return domain.Reservation{}, err
	}

	s.log.Info("reservation cancelled", zap.String("reservation_id", id.String()), zap.Strings("released_rooms", released))
	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionReservationCancel, "reservation", &targetID, map[string]any{
		"released_rooms": released,
	})
	return *reservation, nil
}

func (s *Service) AddDeposit(ctx context.Context, id snowflake.ID, req domain.DepositRequest) (paymentdomain.Payment, error) {
	if id == 0 {
		return paymentdomain.Payment{}, domain.ErrInvalidID
	}

	var (
		payment  paymentdomain.Payment
		replayed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lock(ctx, tx, id, domain.StatusPending, domain.StatusConfirmed); err != nil {
			return err
		}
		reservationID := id
		var err error
		payment, replayed, err = s.payments.Record(ctx, tx, paymentdomain.RecordRequest{
			ReservationID:  &reservationID,
			Amount:         req.Amount,
			Method:         req.Method,
			Bank:           req.Bank,
			Description:    req.Description,
			Direction:      req.Direction,
			IdempotencyKey: req.IdempotencyKey,
		})
		return err
	})
	if err != nil {
		s.recordConflict("add_deposit", err)
		return paymentdomain.Payment{}, err
	}
	if replayed {
		return payment, nil
	}

	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionPaymentRecorded, "reservation", &targetID, map[string]any{
		"payment_id": payment.ID.String(),
		"amount":     payment.Amount,
		"method":     string(payment.Method),
		"direction":  string(payment.Direction),
	})
	return payment, nil
}

func (s *Service) Promote(ctx context.Context, id snowflake.ID, req domain.PromoteRequest) (domain.PromoteResult, error) {
	if id == 0 {
		return domain.PromoteResult{}, domain.ErrInvalidID
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.PromoteResult{}, err
	}
	if current.Status != domain.StatusConfirmed {
		s.recordConflict("promote", domain.ErrStatusConflict)
		return domain.PromoteResult{}, domain.ErrStatusConflict
	}
	occupants, err := assignOccupants(current, req.Occupants)
	if err != nil {
		return domain.PromoteResult{}, err
	}
	if req.ScheduleID != nil {
		if _, err := s.references.GetSchedule(ctx, *req.ScheduleID); err != nil {
			if errors.Is(err, referencedomain.ErrNotFound) {
				return domain.PromoteResult{}, staydomain.ErrInvalidSchedule
			}
			return domain.PromoteResult{}, err
		}
	}

	var result domain.PromoteResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := s.lock(ctx, tx, id, domain.StatusConfirmed)
		if err != nil {
			return err
		}
		deposits, err := s.payments.SumForReservation(ctx, tx, id)
		if err != nil {
			return err
		}
		credit := reservation.AdvancePayment + deposits.Net()
		if credit < 0 {
			credit = 0
		}

		stays := make([]staydomain.Stay, 0, len(reservation.Details))
		for i, detail := range reservation.Details {
			occupant := occupants[detail.RoomID]
			rate := detail.AgreedRate
			reservationID := id
			checkIn := staydomain.CheckInRequest{
				GuestID:            occupant.GuestID,
				Guest:              occupant.Guest,
				ReuseExistingGuest: true,
				CompanionIDs:       occupant.CompanionIDs,
				Companions:         occupant.Companions,
				RoomID:             detail.RoomID,
				PlannedNights:      reservation.Nights,
				Notes:              req.Notes,
				ScheduleID:         req.ScheduleID,
				ReservationID:      &reservationID,
				AgreedRate:         &rate,
				HoldsRoom:          detail.Held,
			}
			if i == 0 && credit > 0 {
				checkIn.AdvancePayment = credit
				checkIn.AdvanceMethod = reservation.PaymentMethod
			}
			stay, err := s.stays.CheckInTx(ctx, tx, checkIn)
			if err != nil {
				return err
			}
			stays = append(stays, stay)
		}
		if err := s.setStatus(ctx, tx, reservation, []domain.Status{domain.StatusConfirmed}, domain.StatusFinalized); err != nil {
			return err
		}
		result = domain.PromoteResult{Reservation: *reservation, Stays: stays, Credited: credit}
		return nil
	})
	if err != nil {
		s.recordConflict("promote", err)
		s.log.Warn("reservation promotion rolled back", zap.String("reservation_id", id.String()), zap.Error(err))
		return domain.PromoteResult{}, err
	}

	stayIDs := make([]string, 0, len(result.Stays))
	for _, stay := range result.Stays {
		s.metrics.RecordCheckIn(ctx, "reservation")
		stayIDs = append(stayIDs, stay.ID.String())
	}
	s.log.Info("reservation promoted",
		zap.String("reservation_id", id.String()),
		zap.Strings("stay_ids", stayIDs),
		zap.Int64("credited", result.Credited),
	)
	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionReservationPromote, "reservation", &targetID, map[string]any{
		"stay_ids": stayIDs,
		"credited": result.Credited,
	})
	return result, nil
}

// assignOccupants pairs every reserved room with its titular guest. The
// reservation holder takes the first room unless named elsewhere.
func assignOccupants(reservation domain.Reservation, occupants []domain.Occupant) (map[snowflake.ID]domain.Occupant, error) {
	rooms := make(map[snowflake.ID]struct{}, len(reservation.Details))
	for _, detail := range reservation.Details {
		rooms[detail.RoomID] = struct{}{}
	}

	assigned := make(map[snowflake.ID]domain.Occupant, len(reservation.Details))
	holderPlaced := false
	for _, occupant := range occupants {
		if _, ok := rooms[occupant.RoomID]; !ok {
			return nil, domain.ErrUnknownRoom
		}
		if _, dup := assigned[occupant.RoomID]; dup {
			return nil, domain.ErrDuplicateRoom
		}
		if occupant.GuestID != nil && *occupant.GuestID == reservation.GuestID {
			holderPlaced = true
		}
		assigned[occupant.RoomID] = occupant
	}

	for i, detail := range reservation.Details {
		occupant, ok := assigned[detail.RoomID]
		if ok && (occupant.GuestID != nil || occupant.Guest != nil) {
			continue
		}
		if i == 0 && !holderPlaced {
			holder := reservation.GuestID
			occupant.RoomID = detail.RoomID
			occupant.GuestID = &holder
			assigned[detail.RoomID] = occupant
			holderPlaced = true
			continue
		}
		return nil, domain.ErrOccupantRequired
	}
	return assigned, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Reservation, error) {
	if id == 0 {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	reservation, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if reservation == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}
	details, err := s.repo.ListDetails(ctx, s.db, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	reservation.Details = details
	return *reservation, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.PageToken != "" {
		if _, err := pagination.DecodeCursor(req.PageToken); err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
	}
	filter := domain.ListFilter{From: req.From, To: req.To}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParseStatus(req.Status, s.policy.Get().StatusSynonyms.Reservation)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}
	if req.GuestID != nil {
		filter.GuestID = *req.GuestID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(r *domain.Reservation) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        r.ID.String(),
			CreatedAt: r.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	reservations := make([]domain.Reservation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		reservations = append(reservations, *item)
	}

	resp := domain.ListResponse{Reservations: reservations}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// lock reads the reservation under a row lock and requires one of allowed.
func (s *Service) lock(ctx context.Context, tx *gorm.DB, id snowflake.ID, allowed ...domain.Status) (*domain.Reservation, error) {
	reservation, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, domain.ErrNotFound
	}
	permitted := false
	for _, status := range allowed {
		if reservation.Status == status {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, domain.ErrStatusConflict
	}
	details, err := s.repo.ListDetails(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	reservation.Details = details
	return reservation, nil
}

func (s *Service) setStatus(ctx context.Context, tx *gorm.DB, reservation *domain.Reservation, from []domain.Status, next domain.Status) error {
	now := s.clock.Now()
	affected, err := s.repo.UpdateStatus(ctx, tx, reservation.ID, from, next, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrStatusConflict
	}
	reservation.Status = next
	reservation.UpdatedAt = now
	return nil
}

func (s *Service) recordConflict(operation string, err error) {
	var reason string
	switch {
	case errors.Is(err, domain.ErrStatusConflict):
		reason = metrics.ConflictOther
	case errors.Is(err, roomdomain.ErrRoomUnavailable),
		errors.Is(err, roomdomain.ErrRoomInactive),
		errors.Is(err, roomdomain.ErrInvalidTransition):
		reason = metrics.ConflictRoomUnavailable
	case errors.Is(err, roomdomain.ErrStatusConflict):
		reason = metrics.ConflictRoomStatusChanged
	case errors.Is(err, staydomain.ErrCapacityExceeded):
		reason = metrics.ConflictCapacity
	case errors.Is(err, guestdomain.ErrDuplicateIdentification),
		errors.Is(err, paymentdomain.ErrIdempotencyReuse):
		reason = metrics.ConflictDuplicate
	default:
		return
	}
	s.frontdesk.Conflict("reservation."+operation, reason)
}
