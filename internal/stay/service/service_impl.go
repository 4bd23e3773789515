package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/billing"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"github.com/smallbiznis/frontdesk/internal/stay/domain"
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
	Rooms      roomdomain.Service
	Guests     guestdomain.Service
	References referencedomain.Service
	Payments   paymentdomain.Service
	Invoices   invoicedomain.Service
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
	invoices   invoicedomain.Service
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
	frontdesk  *metrics.FrontDeskMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("stay.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		rooms:      p.Rooms,
		guests:     p.Guests,
		references: p.References,
		payments:   p.Payments,
		invoices:   p.Invoices,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
		frontdesk:  p.FrontDesk,
	}
}

func (s *Service) CheckIn(ctx context.Context, req domain.CheckInRequest) (domain.Stay, error) {
	if err := s.checkSchedule(ctx, req.ScheduleID); err != nil {
		return domain.Stay{}, err
	}

	var stay domain.Stay
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stay, err = s.checkIn(ctx, tx, req)
		return err
	})
	if err != nil {
		s.recordConflict("check_in", err)
		return domain.Stay{}, err
	}

	s.metrics.RecordCheckIn(ctx, "walk_in")
	s.refreshActiveGauge(ctx)
	s.log.Info("guest checked in",
		zap.String("stay_id", stay.ID.String()),
		zap.String("room_id", stay.RoomID.String()),
		zap.String("guest_id", stay.GuestID.String()),
	)
	targetID := stay.ID.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionStayCheckIn, "stay", &targetID, map[string]any{
		"room_id":        stay.RoomID.String(),
		"guest_id":       stay.GuestID.String(),
		"companions":     len(stay.CompanionIDs),
		"planned_nights": stay.PlannedNights,
	})
	return stay, nil
}

func (s *Service) CheckInTx(ctx context.Context, tx *gorm.DB, req domain.CheckInRequest) (domain.Stay, error) {
	if tx == nil {
		return s.CheckIn(ctx, req)
	}
	return s.checkIn(ctx, tx, req)
}

func (s *Service) checkIn(ctx context.Context, tx *gorm.DB, req domain.CheckInRequest) (domain.Stay, error) {
	if req.RoomID == 0 {
		return domain.Stay{}, roomdomain.ErrInvalidID
	}
	if req.PlannedNights < 1 {
		return domain.Stay{}, domain.ErrInvalidPlannedNights
	}
	if req.AdvancePayment < 0 {
		return domain.Stay{}, domain.ErrInvalidAdvance
	}
	advanceMethod := ""
	if req.AdvancePayment > 0 {
		method, err := paymentdomain.ParseMethod(defaultString(req.AdvanceMethod, string(paymentdomain.MethodCash)))
		if err != nil {
			return domain.Stay{}, err
		}
		advanceMethod = string(method)
	}

	titular, err := s.resolveTitular(ctx, tx, req)
	if err != nil {
		return domain.Stay{}, err
	}
	companions, err := s.resolveCompanions(ctx, tx, titular.ID, req)
	if err != nil {
		return domain.Stay{}, err
	}
	for _, guestID := range append([]snowflake.ID{titular.ID}, companions...) {
		housed, err := s.repo.FindActiveByGuest(ctx, tx, guestID)
		if err != nil {
			return domain.Stay{}, err
		}
		if housed != nil {
			return domain.Stay{}, domain.ErrGuestAlreadyHoused
		}
	}

	room, err := s.rooms.LockDetail(ctx, tx, req.RoomID)
	if err != nil {
		return domain.Stay{}, err
	}
	if room.Capacity > 0 && 1+len(companions) > room.Capacity {
		return domain.Stay{}, domain.ErrCapacityExceeded
	}
	event := roomdomain.EventCheckIn
	if req.ReservationID != nil && req.HoldsRoom && room.Status == roomdomain.StatusReserved {
		event = roomdomain.EventCheckInReserved
	}
	if _, err := s.rooms.Transition(ctx, tx, req.RoomID, event); err != nil {
		return domain.Stay{}, err
	}

	now := s.clock.Now()
	staffID, _ := obscontext.StaffFromContext(ctx)
	stay := domain.Stay{
		ID:             s.genID.Generate(),
		GuestID:        titular.ID,
		RoomID:         req.RoomID,
		CheckInAt:      now,
		PlannedNights:  req.PlannedNights,
		AdvancePayment: req.AdvancePayment,
		AdvanceMethod:  advanceMethod,
		NightlyRate:    room.Rate,
		AgreedRate:     req.AgreedRate,
		Notes:          strings.TrimSpace(req.Notes),
		Status:         domain.StatusActive,
		ScheduleID:     req.ScheduleID,
		ReservationID:  req.ReservationID,
		CreatedBy:      staffID,
		CreatedAt:      now,
		UpdatedAt:      now,
		CompanionIDs:   companions,
	}
	if err := s.insertStay(ctx, tx, &stay); err != nil {
		return domain.Stay{}, err
	}
	return stay, nil
}

func (s *Service) resolveTitular(ctx context.Context, tx *gorm.DB, req domain.CheckInRequest) (guestdomain.Guest, error) {
	switch {
	case req.GuestID != nil && *req.GuestID != 0:
		guests, err := s.guests.GetMany(ctx, tx, []snowflake.ID{*req.GuestID})
		if err != nil {
			return guestdomain.Guest{}, err
		}
		return guests[0], nil
	case req.Guest != nil:
		if req.ReuseExistingGuest {
			guest, _, err := s.guests.FindOrCreate(ctx, tx, *req.Guest)
			return guest, err
		}
		return s.guests.Create(ctx, tx, *req.Guest)
	default:
		return guestdomain.Guest{}, domain.ErrGuestRequired
	}
}

// resolveCompanions returns the distinct companion ids of a check-in.
// Companions given by attributes are reused by identification number.
func (s *Service) resolveCompanions(ctx context.Context, tx *gorm.DB, titularID snowflake.ID, req domain.CheckInRequest) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(req.CompanionIDs)+len(req.Companions))
	if len(req.CompanionIDs) > 0 {
		guests, err := s.guests.GetMany(ctx, tx, req.CompanionIDs)
		if err != nil {
			return nil, err
		}
		for _, g := range guests {
			ids = append(ids, g.ID)
		}
	}
	for _, attrs := range req.Companions {
		guest, _, err := s.guests.FindOrCreate(ctx, tx, attrs)
		if err != nil {
			return nil, err
		}
		ids = append(ids, guest.ID)
	}

	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == titularID {
			return nil, domain.ErrCompanionIsTitular
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (s *Service) insertStay(ctx context.Context, tx *gorm.DB, stay *domain.Stay) error {
	if err := s.repo.Insert(ctx, tx, stay); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return roomdomain.ErrRoomOccupied
		}
		return err
	}
	if len(stay.CompanionIDs) > 0 {
		if err := s.repo.InsertCompanions(ctx, tx, stay.ID, stay.CompanionIDs, stay.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) AddConsumption(ctx context.Context, stayID snowflake.ID, req domain.ConsumptionRequest) (domain.ConsumptionDetail, error) {
	if stayID == 0 {
		return domain.ConsumptionDetail{}, domain.ErrInvalidID
	}
	if req.Quantity < 1 {
		return domain.ConsumptionDetail{}, domain.ErrInvalidQuantity
	}
	if req.ServiceID == 0 {
		return domain.ConsumptionDetail{}, domain.ErrInvalidService
	}
	item, err := s.references.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, referencedomain.ErrNotFound) {
			return domain.ConsumptionDetail{}, domain.ErrInvalidService
		}
		return domain.ConsumptionDetail{}, err
	}
	if !item.Active {
		return domain.ConsumptionDetail{}, domain.ErrServiceInactive
	}

	staffID, _ := obscontext.StaffFromContext(ctx)
	line := domain.Consumption{
		ID:           s.genID.Generate(),
		StayID:       stayID,
		ServiceID:    item.ID,
		Quantity:     req.Quantity,
		SellingPrice: item.Price,
		CreatedBy:    staffID,
		CreatedAt:    s.clock.Now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockActive(ctx, tx, stayID); err != nil {
			return err
		}
		return s.repo.InsertConsumption(ctx, tx, &line)
	})
	if err != nil {
		return domain.ConsumptionDetail{}, err
	}
	return domain.ConsumptionDetail{Consumption: line, ServiceName: item.Name}, nil
}

func (s *Service) RemoveConsumption(ctx context.Context, stayID, consumptionID snowflake.ID) error {
	if stayID == 0 || consumptionID == 0 {
		return domain.ErrInvalidID
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockActive(ctx, tx, stayID); err != nil {
			return err
		}
		line, err := s.repo.FindConsumption(ctx, tx, consumptionID)
		if err != nil {
			return err
		}
		if line == nil || line.StayID != stayID {
			return domain.ErrConsumptionNotFound
		}
		return s.repo.DeleteConsumption(ctx, tx, consumptionID)
	})
}

func (s *Service) AddPayment(ctx context.Context, stayID snowflake.ID, req domain.PaymentRequest) (paymentdomain.Payment, error) {
	if stayID == 0 {
		return paymentdomain.Payment{}, domain.ErrInvalidID
	}

	var (
		payment  paymentdomain.Payment
		replayed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockActive(ctx, tx, stayID); err != nil {
			return err
		}
		var err error
		payment, replayed, err = s.payments.Record(ctx, tx, recordRequest(stayID, req))
		return err
	})
	if err != nil {
		s.recordConflict("add_payment", err)
		return paymentdomain.Payment{}, err
	}
	if replayed {
		return payment, nil
	}

	targetID := stayID.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionPaymentRecorded, "stay", &targetID, map[string]any{
		"payment_id": payment.ID.String(),
		"amount":     payment.Amount,
		"method":     string(payment.Method),
		"direction":  string(payment.Direction),
	})
	return payment, nil
}

func (s *Service) Transfer(ctx context.Context, stayID, newRoomID snowflake.ID) (domain.TransferResult, error) {
	if stayID == 0 || newRoomID == 0 {
		return domain.TransferResult{}, domain.ErrInvalidID
	}

	var result domain.TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := s.lockActive(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if old.RoomID == newRoomID {
			return domain.ErrSameRoom
		}
		companions, err := s.repo.ListCompanions(ctx, tx, old.ID)
		if err != nil {
			return err
		}
		old.CompanionIDs = companions

		oldRoom, err := s.rooms.LockDetail(ctx, tx, old.RoomID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		summary, err := s.computeSummary(ctx, tx, *old, oldRoom, now, false)
		if err != nil {
			return err
		}

		newRoom, err := s.rooms.LockDetail(ctx, tx, newRoomID)
		if err != nil {
			return err
		}
		if newRoom.Capacity > 0 && old.Occupants() > newRoom.Capacity {
			return domain.ErrCapacityExceeded
		}

		if err := s.finalize(ctx, tx, old, now, domain.ClosedTransfer); err != nil {
			return err
		}
		if _, err := s.rooms.Transition(ctx, tx, old.RoomID, roomdomain.EventTransferOut); err != nil {
			return err
		}
		if _, err := s.rooms.Transition(ctx, tx, newRoomID, roomdomain.EventCheckIn); err != nil {
			return err
		}

		remaining := old.PlannedNights - summary.ElapsedNights
		if remaining < 1 {
			remaining = 1
		}
		previousID := old.ID
		staffID, _ := obscontext.StaffFromContext(ctx)
		opened := domain.Stay{
			ID:             s.genID.Generate(),
			GuestID:        old.GuestID,
			RoomID:         newRoomID,
			CheckInAt:      now,
			PlannedNights:  remaining,
			CarriedBalance: summary.Balance,
			NightlyRate:    newRoom.Rate,
			Notes:          old.Notes,
			Status:         domain.StatusActive,
			ScheduleID:     old.ScheduleID,
			PreviousStayID: &previousID,
			CreatedBy:      staffID,
			CreatedAt:      now,
			UpdatedAt:      now,
			CompanionIDs:   companions,
		}
		if err := s.insertStay(ctx, tx, &opened); err != nil {
			return err
		}

		result = domain.TransferResult{Closed: *old, Opened: opened, Summary: summary}
		return nil
	})
	if err != nil {
		s.recordConflict("transfer", err)
		return domain.TransferResult{}, err
	}

	s.log.Info("stay transferred",
		zap.String("from_stay_id", result.Closed.ID.String()),
		zap.String("to_stay_id", result.Opened.ID.String()),
		zap.Int64("carried_balance", result.Opened.CarriedBalance),
	)
	targetID := result.Closed.ID.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionStayTransfer, "stay", &targetID, map[string]any{
		"from_room_id":    result.Closed.RoomID.String(),
		"to_room_id":      result.Opened.RoomID.String(),
		"new_stay_id":     result.Opened.ID.String(),
		"carried_balance": result.Opened.CarriedBalance,
	})
	return result, nil
}

func (s *Service) MergeIntoGroup(ctx context.Context, stayID, targetStayID snowflake.ID) (domain.MergeResult, error) {
	if stayID == 0 || targetStayID == 0 {
		return domain.MergeResult{}, domain.ErrInvalidID
	}
	if stayID == targetStayID {
		return domain.MergeResult{}, domain.ErrSameStay
	}

	var result domain.MergeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, target, err := s.lockPair(ctx, tx, stayID, targetStayID)
		if err != nil {
			return err
		}
		if source.RoomID == target.RoomID {
			return domain.ErrSameStay
		}
		sourceCompanions, err := s.repo.ListCompanions(ctx, tx, source.ID)
		if err != nil {
			return err
		}
		targetCompanions, err := s.repo.ListCompanions(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		source.CompanionIDs = sourceCompanions
		target.CompanionIDs = targetCompanions

		targetRoom, err := s.rooms.LockDetail(ctx, tx, target.RoomID)
		if err != nil {
			return err
		}
		arrivals := mergeArrivals(*source, targetCompanions)
		if target.Occupants() >= targetRoom.Capacity || target.Occupants()+len(arrivals) > targetRoom.Capacity {
			return domain.ErrCapacityExceeded
		}

		sourceRoom, err := s.rooms.LockDetail(ctx, tx, source.RoomID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		summary, err := s.computeSummary(ctx, tx, *source, sourceRoom, now, false)
		if err != nil {
			return err
		}

		if err := s.finalize(ctx, tx, source, now, domain.ClosedMerge); err != nil {
			return err
		}
		if _, err := s.rooms.Transition(ctx, tx, source.RoomID, roomdomain.EventMergeOut); err != nil {
			return err
		}
		if err := s.repo.InsertCompanions(ctx, tx, target.ID, arrivals, now); err != nil {
			return err
		}
		if summary.Balance != 0 {
			if err := s.repo.AddCarriedBalance(ctx, tx, target.ID, summary.Balance, now); err != nil {
				return err
			}
			target.CarriedBalance += summary.Balance
		}
		target.CompanionIDs = append(target.CompanionIDs, arrivals...)
		target.UpdatedAt = now

		result = domain.MergeResult{Source: *source, Target: *target, Summary: summary}
		return nil
	})
	if err != nil {
		s.recordConflict("merge", err)
		return domain.MergeResult{}, err
	}

	s.refreshActiveGauge(ctx)
	targetID := result.Source.ID.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionStayMerge, "stay", &targetID, map[string]any{
		"target_stay_id": result.Target.ID.String(),
		"from_room_id":   result.Source.RoomID.String(),
		"to_room_id":     result.Target.RoomID.String(),
		"carried":        result.Summary.Balance,
	})
	return result, nil
}

// mergeArrivals lists the source guests not already housed on the target.
func mergeArrivals(source domain.Stay, targetCompanions []snowflake.ID) []snowflake.ID {
	present := make(map[snowflake.ID]struct{}, len(targetCompanions))
	for _, id := range targetCompanions {
		present[id] = struct{}{}
	}
	arrivals := make([]snowflake.ID, 0, source.Occupants())
	for _, id := range append([]snowflake.ID{source.GuestID}, source.CompanionIDs...) {
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		arrivals = append(arrivals, id)
	}
	return arrivals
}

func (s *Service) CancelAssignment(ctx context.Context, stayID snowflake.ID) error {
	if stayID == 0 {
		return domain.ErrInvalidID
	}

	var stay *domain.Stay
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stay, err = s.lockActive(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if s.clock.Now().Sub(stay.CheckInAt) > s.policy.Get().CancelGrace() {
			return domain.ErrCancelWindowElapsed
		}
		count, err := s.payments.CountByStay(ctx, tx, stayID)
		if err != nil {
			return err
		}
		if count > 0 || stay.AdvancePayment > 0 || stay.CarriedBalance != 0 {
			return domain.ErrHasPayments
		}
		if err := s.repo.Delete(ctx, tx, stayID); err != nil {
			return err
		}
		_, err = s.rooms.Transition(ctx, tx, stay.RoomID, roomdomain.EventCancelAssignment)
		return err
	})
	if err != nil {
		s.recordConflict("cancel_assignment", err)
		return err
	}

	s.refreshActiveGauge(ctx)
	targetID := stayID.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionStayCancel, "stay", &targetID, map[string]any{
		"room_id":  stay.RoomID.String(),
		"guest_id": stay.GuestID.String(),
	})
	return nil
}

func (s *Service) Checkout(ctx context.Context, stayID snowflake.ID, req domain.CheckoutRequest) (domain.CheckoutResult, error) {
	if stayID == 0 {
		return domain.CheckoutResult{}, domain.ErrInvalidID
	}
	if strings.TrimSpace(req.DocumentType) == "" {
		return domain.CheckoutResult{}, invoicedomain.ErrInvalidDocumentType
	}
	documentType, err := invoicedomain.ParseDocumentType(req.DocumentType)
	if err != nil {
		return domain.CheckoutResult{}, err
	}
	taxID := strings.TrimSpace(req.TaxID)
	businessName := strings.TrimSpace(req.BusinessName)
	if err := invoicedomain.ValidateDocument(documentType, taxID, businessName); err != nil {
		return domain.CheckoutResult{}, err
	}

	current, err := s.repo.FindByID(ctx, s.db, stayID)
	if err != nil {
		return domain.CheckoutResult{}, err
	}
	if current == nil {
		return domain.CheckoutResult{}, domain.ErrNotFound
	}
	if !current.IsActive() {
		s.recordConflict("checkout", domain.ErrStayFinalized)
		return domain.CheckoutResult{}, domain.ErrStayFinalized
	}
	now := s.clock.Now()
	if req.WaivePenalty {
		if err := s.checkWaiver(ctx, *current, now); err != nil {
			return domain.CheckoutResult{}, err
		}
	}

	var result domain.CheckoutResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stay, err := s.lockActive(ctx, tx, stayID)
		if err != nil {
			return err
		}
		room, err := s.rooms.LockDetail(ctx, tx, stay.RoomID)
		if err != nil {
			return err
		}

		if req.Payment != nil && req.Payment.Amount != 0 {
			payment, _, err := s.payments.Record(ctx, tx, recordRequest(stay.ID, *req.Payment))
			if err != nil {
				return err
			}
			result.Payment = &payment
		}

		summary, err := s.computeSummary(ctx, tx, *stay, room, now, req.WaivePenalty)
		if err != nil {
			return err
		}
		invoice, err := s.invoices.Issue(ctx, tx, invoicedomain.IssueRequest{
			StayID:       stay.ID,
			GuestID:      stay.GuestID,
			DocumentType: documentType,
			TaxID:        taxID,
			BusinessName: businessName,
			Lines:        billing.InvoiceLines(summary),
			Total:        summary.TotalDue,
			IssuedAt:     now,
			Waived:       summary.Waived,
		})
		if err != nil {
			return err
		}
		if err := s.finalize(ctx, tx, stay, now, domain.ClosedCheckout); err != nil {
			return err
		}
		if _, err := s.rooms.Transition(ctx, tx, stay.RoomID, roomdomain.EventCheckOut); err != nil {
			return err
		}

		result.Stay = *stay
		result.Invoice = invoice
		result.Summary = summary
		return nil
	})
	if err != nil {
		s.recordConflict("checkout", err)
		s.log.Warn("checkout rolled back", zap.String("stay_id", stayID.String()), zap.Error(err))
		return domain.CheckoutResult{}, err
	}

	s.metrics.RecordCheckout(ctx, string(documentType), result.Summary.Nights, result.Summary.TotalDue)
	s.refreshActiveGauge(ctx)
	s.log.Info("stay checked out",
		zap.String("stay_id", stayID.String()),
		zap.String("invoice_number", result.Invoice.Number),
		zap.Int("nights", result.Summary.Nights),
		zap.Int64("total_due", result.Summary.TotalDue),
		zap.Int64("balance", result.Summary.Balance),
	)
	targetID := stayID.String()
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionStayCheckout, "stay", &targetID, map[string]any{
		"invoice_id":     result.Invoice.ID.String(),
		"invoice_number": result.Invoice.Number,
		"total_due":      result.Summary.TotalDue,
		"balance":        result.Summary.Balance,
		"waived":         result.Summary.Waived,
	})
	return result, nil
}

func (s *Service) Get(ctx context.Context, stayID snowflake.ID) (domain.Stay, error) {
	if stayID == 0 {
		return domain.Stay{}, domain.ErrInvalidID
	}
	stay, err := s.repo.FindByID(ctx, s.db, stayID)
	if err != nil {
		return domain.Stay{}, err
	}
	if stay == nil {
		return domain.Stay{}, domain.ErrNotFound
	}
	if stay.CompanionIDs, err = s.repo.ListCompanions(ctx, s.db, stayID); err != nil {
		return domain.Stay{}, err
	}
	if stay.Consumptions, err = s.repo.ListConsumptions(ctx, s.db, stayID); err != nil {
		return domain.Stay{}, err
	}
	return *stay, nil
}

func (s *Service) ListActive(ctx context.Context, filter domain.ListFilter) ([]domain.ActiveStay, error) {
	items, err := s.repo.ListActive(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ActiveStay, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) ListPayments(ctx context.Context, stayID snowflake.ID) ([]paymentdomain.Payment, error) {
	if stayID == 0 {
		return nil, domain.ErrInvalidID
	}
	stay, err := s.repo.FindByID(ctx, s.db, stayID)
	if err != nil {
		return nil, err
	}
	if stay == nil {
		return nil, domain.ErrNotFound
	}
	return s.payments.ListByStay(ctx, nil, stayID)
}

// Preview computes the running bill without touching any row.
func (s *Service) Preview(ctx context.Context, stayID snowflake.ID, waive bool) (domain.Preview, error) {
	if stayID == 0 {
		return domain.Preview{}, domain.ErrInvalidID
	}
	stay, err := s.repo.FindByID(ctx, s.db, stayID)
	if err != nil {
		return domain.Preview{}, err
	}
	if stay == nil {
		return domain.Preview{}, domain.ErrNotFound
	}
	if !stay.IsActive() {
		return domain.Preview{}, domain.ErrStayFinalized
	}
	room, err := s.rooms.Get(ctx, stay.RoomID)
	if err != nil {
		return domain.Preview{}, err
	}

	now := s.clock.Now()
	preview := domain.Preview{ComputedAt: now}
	window, err := s.waiverWindow(ctx, *stay, now)
	if err != nil {
		return domain.Preview{}, err
	}
	if window != nil {
		preview.WaiverWindow = window
		preview.WaiverPermitted = window.Permits(now)
	}
	if waive && !preview.WaiverPermitted {
		return domain.Preview{}, billing.ErrWaiverNotPermitted
	}

	summary, err := s.computeSummary(ctx, s.db, *stay, room, now, waive)
	if err != nil {
		return domain.Preview{}, err
	}
	preview.Summary = summary
	preview.Lines = billing.InvoiceLines(summary)
	return preview, nil
}

// computeSummary gathers the billing inputs of stay as of now. tx must be
// the caller's transaction when the stay is being closed.
func (s *Service) computeSummary(ctx context.Context, tx *gorm.DB, stay domain.Stay, room roomdomain.RoomDetail, now time.Time, waive bool) (billing.Summary, error) {
	consumptions, err := s.repo.ListConsumptions(ctx, tx, stay.ID)
	if err != nil {
		return billing.Summary{}, err
	}
	payments, err := s.payments.ListByStay(ctx, tx, stay.ID)
	if err != nil {
		return billing.Summary{}, err
	}

	lines := make([]billing.ConsumptionLine, 0, len(consumptions))
	for _, c := range consumptions {
		lines = append(lines, billing.ConsumptionLine{
			ServiceID:   c.ServiceID,
			ServiceName: c.ServiceName,
			Quantity:    c.Quantity,
			UnitPrice:   c.SellingPrice,
		})
	}
	entries := make([]billing.PaymentEntry, 0, len(payments))
	for _, p := range payments {
		entries = append(entries, billing.PaymentEntry{Amount: p.Amount, Direction: string(p.Direction)})
	}

	rate := billing.ResolveRate(billing.RateInput{
		AgreedRate:   stay.AgreedRate,
		CapturedRate: stay.NightlyRate,
		LiveRate:     room.Rate,
		Frozen:       s.policy.Get().FrozenRates(),
	})
	return billing.Compute(billing.Input{
		CheckInAt:      stay.CheckInAt,
		Now:            now,
		Rate:           rate,
		Consumptions:   lines,
		CarriedBalance: stay.CarriedBalance,
		AdvancePayment: stay.AdvancePayment,
		Payments:       entries,
		Waive:          waive,
	}), nil
}

// waiverWindow returns nil when the stay follows no schedule.
func (s *Service) waiverWindow(ctx context.Context, stay domain.Stay, now time.Time) (*billing.Window, error) {
	if stay.ScheduleID == nil || *stay.ScheduleID == 0 {
		return nil, nil
	}
	schedule, err := s.references.GetSchedule(ctx, *stay.ScheduleID)
	if err != nil {
		if errors.Is(err, referencedomain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	checkout, err := schedule.CheckoutOn(now, s.policy.Get().Location())
	if err != nil {
		return nil, err
	}
	window := billing.WaiverWindow(checkout, schedule.ExitTolerance())
	return &window, nil
}

func (s *Service) checkWaiver(ctx context.Context, stay domain.Stay, now time.Time) error {
	window, err := s.waiverWindow(ctx, stay, now)
	if err != nil {
		return err
	}
	if window == nil || !window.Permits(now) {
		return billing.ErrWaiverNotPermitted
	}
	return nil
}

func (s *Service) checkSchedule(ctx context.Context, scheduleID *snowflake.ID) error {
	if scheduleID == nil {
		return nil
	}
	if *scheduleID == 0 {
		return domain.ErrInvalidSchedule
	}
	schedule, err := s.references.GetSchedule(ctx, *scheduleID)
	if err != nil {
		if errors.Is(err, referencedomain.ErrNotFound) {
			return domain.ErrInvalidSchedule
		}
		return err
	}
	if !schedule.Active {
		return domain.ErrInvalidSchedule
	}
	return nil
}

func (s *Service) lockActive(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (*domain.Stay, error) {
	stay, err := s.repo.FindByIDForUpdate(ctx, tx, stayID)
	if err != nil {
		return nil, err
	}
	if stay == nil {
		return nil, domain.ErrNotFound
	}
	if !stay.IsActive() {
		return nil, domain.ErrStayFinalized
	}
	return stay, nil
}

// lockPair locks two stays in id order so concurrent merges cannot deadlock.
func (s *Service) lockPair(ctx context.Context, tx *gorm.DB, sourceID, targetID snowflake.ID) (*domain.Stay, *domain.Stay, error) {
	first, second := sourceID, targetID
	if second < first {
		first, second = second, first
	}
	a, err := s.lockActive(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.lockActive(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.ID == sourceID {
		return a, b, nil
	}
	return b, a, nil
}

func (s *Service) finalize(ctx context.Context, tx *gorm.DB, stay *domain.Stay, at time.Time, reason domain.ClosedReason) error {
	affected, err := s.repo.Finalize(ctx, tx, stay.ID, at, reason)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrStayFinalized
	}
	stay.Status = domain.StatusFinalized
	stay.CheckOutAt = &at
	stay.ClosedReason = reason
	stay.UpdatedAt = at
	return nil
}

func (s *Service) refreshActiveGauge(ctx context.Context) {
	if s.frontdesk == nil {
		return
	}
	count, err := s.repo.CountActive(ctx, s.db)
	if err != nil {
		s.log.Warn("failed to count active stays", zap.Error(err))
		return
	}
	s.frontdesk.SetActiveStays(int(count))
}

func (s *Service) recordConflict(operation string, err error) {
	reason := conflictReason(err)
	if reason == "" {
		return
	}
	s.frontdesk.Conflict("stay."+operation, reason)
}

func conflictReason(err error) string {
	switch {
	case errors.Is(err, roomdomain.ErrRoomUnavailable),
		errors.Is(err, roomdomain.ErrRoomInactive),
		errors.Is(err, roomdomain.ErrRoomOccupied),
		errors.Is(err, roomdomain.ErrInvalidTransition):
		return metrics.ConflictRoomUnavailable
	case errors.Is(err, roomdomain.ErrStatusConflict):
		return metrics.ConflictRoomStatusChanged
	case errors.Is(err, domain.ErrStayFinalized):
		return metrics.ConflictStayFinalized
	case errors.Is(err, domain.ErrCapacityExceeded):
		return metrics.ConflictCapacity
	case errors.Is(err, guestdomain.ErrDuplicateIdentification),
		errors.Is(err, invoicedomain.ErrAlreadyIssued),
		errors.Is(err, paymentdomain.ErrIdempotencyReuse):
		return metrics.ConflictDuplicate
	case errors.Is(err, domain.ErrCancelWindowElapsed),
		errors.Is(err, domain.ErrHasPayments),
		errors.Is(err, domain.ErrGuestAlreadyHoused),
		errors.Is(err, invoicedomain.ErrSequenceConflict):
		return metrics.ConflictOther
	default:
		return ""
	}
}

func recordRequest(stayID snowflake.ID, req domain.PaymentRequest) paymentdomain.RecordRequest {
	id := stayID
	return paymentdomain.RecordRequest{
		StayID:         &id,
		Amount:         req.Amount,
		Method:         req.Method,
		Bank:           req.Bank,
		Description:    req.Description,
		Direction:      req.Direction,
		IdempotencyKey: req.IdempotencyKey,
	}
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
