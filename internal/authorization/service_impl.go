package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RoleAdmin = "admin"
	RoleClerk = "clerk"
)

const (
	ObjectRoom        = "room"
	ObjectReference   = "reference"
	ObjectGuest       = "guest"
	ObjectStay        = "stay"
	ObjectReservation = "reservation"
	ObjectInvoice     = "invoice"
	ObjectRegister    = "register"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionView = "view"

	ActionRoomCreate    = "room.create"
	ActionRoomToggle    = "room.toggle"
	ActionRoomOverride  = "room.override"
	ActionRoomMarkClean = "room.mark_clean"

	ActionReferenceCreate = "reference.create"
	ActionReferenceToggle = "reference.toggle"

	ActionGuestWrite = "guest.write"

	ActionStayCheckIn     = "stay.check_in"
	ActionStayCharge      = "stay.charge"
	ActionStayPayment     = "stay.payment"
	ActionStayTransfer    = "stay.transfer"
	ActionStayMerge       = "stay.merge"
	ActionStayCancel      = "stay.cancel"
	ActionStayCheckout    = "stay.checkout"
	ActionReservationEdit = "reservation.edit"

	ActionRegisterExport = "register.export"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, staffID, role, object, action string) error {
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != RoleAdmin && role != RoleClerk {
		s.auditDenied(ctx, staffID, role, object, action)
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("staff:%s", staffID)
	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, staffID, role, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, staffID, role, object, action)
	}
	return nil
}

// ensureGrouping keeps a single role link per staff member, replacing a
// stale one when the gateway reports a different role.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, staffID, role, object, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, "authorization.denied", "authorization", &targetID, map[string]any{
		"object":   object,
		"action":   action,
		"role":     role,
		"staff_id": staffID,
	})
}

func (s *ServiceImpl) auditGranted(ctx context.Context, staffID, role, object, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, "authorization.granted", "authorization", &targetID, map[string]any{
		"object":   object,
		"action":   action,
		"role":     role,
		"staff_id": staffID,
	})
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionRoomOverride, ActionReferenceToggle, ActionRoomToggle:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Admin permissions
		{"role:admin", "*", "*"},

		// Clerk permissions
		{"role:clerk", ObjectRoom, ActionView},
		{"role:clerk", ObjectRoom, ActionRoomMarkClean},
		{"role:clerk", ObjectReference, ActionView},
		{"role:clerk", ObjectGuest, ActionView},
		{"role:clerk", ObjectGuest, ActionGuestWrite},
		{"role:clerk", ObjectStay, ActionView},
		{"role:clerk", ObjectStay, ActionStayCheckIn},
		{"role:clerk", ObjectStay, ActionStayCharge},
		{"role:clerk", ObjectStay, ActionStayPayment},
		{"role:clerk", ObjectStay, ActionStayTransfer},
		{"role:clerk", ObjectStay, ActionStayMerge},
		{"role:clerk", ObjectStay, ActionStayCancel},
		{"role:clerk", ObjectStay, ActionStayCheckout},
		{"role:clerk", ObjectReservation, ActionView},
		{"role:clerk", ObjectReservation, ActionReservationEdit},
		{"role:clerk", ObjectInvoice, ActionView},
		{"role:clerk", ObjectRegister, ActionView},
		{"role:clerk", ObjectRegister, ActionRegisterExport},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
