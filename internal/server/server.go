package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/frontdesk/internal/audit"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/guest"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/internal/idempotency"
	"github.com/smallbiznis/frontdesk/internal/invoice"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	"github.com/smallbiznis/frontdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/frontdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/frontdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/frontdesk/internal/observability/tracing"
	"github.com/smallbiznis/frontdesk/internal/payment"
	"github.com/smallbiznis/frontdesk/internal/providers"
	"github.com/smallbiznis/frontdesk/internal/reference"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
	"github.com/smallbiznis/frontdesk/internal/register"
	registerdomain "github.com/smallbiznis/frontdesk/internal/register/domain"
	"github.com/smallbiznis/frontdesk/internal/reservation"
	reservationdomain "github.com/smallbiznis/frontdesk/internal/reservation/domain"
	"github.com/smallbiznis/frontdesk/internal/room"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"github.com/smallbiznis/frontdesk/internal/stay"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	idempotency.Module,
	providers.Module,
	reference.Module,
	room.Module,
	guest.Module,
	payment.Module,
	invoice.Module,
	stay.Module,
	reservation.Module,
	register.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type requestGuard interface {
	Begin(ctx context.Context, scope, key string) (*idempotency.Ticket, error)
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	referenceSvc   referencedomain.Service
	roomSvc        roomdomain.Service
	guestSvc       guestdomain.Service
	staySvc        staydomain.Service
	reservationSvc reservationdomain.Service
	invoiceSvc     invoicedomain.Service
	registerSvc    registerdomain.Service
	guard          requestGuard
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	ReferenceSvc   referencedomain.Service
	RoomSvc        roomdomain.Service
	GuestSvc       guestdomain.Service
	StaySvc        staydomain.Service
	ReservationSvc reservationdomain.Service
	InvoiceSvc     invoicedomain.Service
	RegisterSvc    registerdomain.Service
	Guard          *idempotency.Guard `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		referenceSvc:   p.ReferenceSvc,
		roomSvc:        p.RoomSvc,
		guestSvc:       p.GuestSvc,
		staySvc:        p.StaySvc,
		reservationSvc: p.ReservationSvc,
		invoiceSvc:     p.InvoiceSvc,
		registerSvc:    p.RegisterSvc,
	}
	if p.Guard != nil {
		svc.guard = p.Guard
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.StaffRequired())

	// -------- Reference data --------
	for _, kind := range []referencedomain.Kind{
		referencedomain.KindRoomType,
		referencedomain.KindPrice,
		referencedomain.KindFloor,
		referencedomain.KindBlock,
		referencedomain.KindService,
		referencedomain.KindSchedule,
	} {
		path := "/" + referencePath(kind)
		api.GET(path, s.authorizeAction(authorization.ObjectReference, authorization.ActionView), s.listReference(kind))
		api.GET(path+"/:id", s.authorizeAction(authorization.ObjectReference, authorization.ActionView), s.getReference(kind))
		api.POST(path, s.authorizeAction(authorization.ObjectReference, authorization.ActionReferenceCreate), s.createReference(kind))
		api.POST(path+"/:id/active", s.authorizeAction(authorization.ObjectReference, authorization.ActionReferenceToggle), s.toggleReference(kind))
	}

	// -------- Rooms --------
	api.GET("/rooms", s.authorizeAction(authorization.ObjectRoom, authorization.ActionView), s.ListRooms)
	api.GET("/rooms/available", s.authorizeAction(authorization.ObjectRoom, authorization.ActionView), s.ListAvailableRooms)
	api.POST("/rooms", s.authorizeAction(authorization.ObjectRoom, authorization.ActionRoomCreate), s.CreateRoom)
	api.GET("/rooms/:id", s.authorizeAction(authorization.ObjectRoom, authorization.ActionView), s.GetRoomByID)
	api.POST("/rooms/:id/active", s.authorizeAction(authorization.ObjectRoom, authorization.ActionRoomToggle), s.ToggleRoom)
	api.POST("/rooms/:id/clean", s.authorizeAction(authorization.ObjectRoom, authorization.ActionRoomMarkClean), s.MarkRoomClean)
	api.POST("/rooms/:id/override", s.authorizeAction(authorization.ObjectRoom, authorization.ActionRoomOverride), s.OverrideRoom)

	// -------- Guests --------
	api.GET("/guests", s.authorizeAction(authorization.ObjectGuest, authorization.ActionView), s.ListGuests)
	api.POST("/guests", s.authorizeAction(authorization.ObjectGuest, authorization.ActionGuestWrite), s.CreateGuest)
	api.GET("/guests/:id", s.authorizeAction(authorization.ObjectGuest, authorization.ActionView), s.GetGuestByID)
	api.PATCH("/guests/:id", s.authorizeAction(authorization.ObjectGuest, authorization.ActionGuestWrite), s.UpdateGuest)
	api.POST("/guests/:id/complete", s.authorizeAction(authorization.ObjectGuest, authorization.ActionGuestWrite), s.CompleteGuestProfile)

	// -------- Stays --------
	api.GET("/stays", s.authorizeAction(authorization.ObjectStay, authorization.ActionView), s.ListActiveStays)
	api.POST("/stays", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayCheckIn), s.CheckIn)
	api.GET("/stays/:id", s.authorizeAction(authorization.ObjectStay, authorization.ActionView), s.GetStayByID)
	api.GET("/stays/:id/preview", s.authorizeAction(authorization.ObjectStay, authorization.ActionView), s.PreviewStay)
	api.POST("/stays/:id/consumptions", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayCharge), s.AddConsumption)
	api.DELETE("/stays/:id/consumptions/:consumption_id", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayCharge), s.RemoveConsumption)
	api.GET("/stays/:id/payments", s.authorizeAction(authorization.ObjectStay, authorization.ActionView), s.ListStayPayments)
	api.POST("/stays/:id/payments", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayPayment), s.Idempotent("stay.payment"), s.AddStayPayment)
	api.POST("/stays/:id/transfer", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayTransfer), s.TransferStay)
	api.POST("/stays/:id/merge", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayMerge), s.MergeStay)
	api.POST("/stays/:id/cancel", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayCancel), s.CancelStay)
	api.POST("/stays/:id/checkout", s.authorizeAction(authorization.ObjectStay, authorization.ActionStayCheckout), s.Idempotent("stay.checkout"), s.CheckoutStay)

	// -------- Reservations --------
	api.GET("/reservations", s.authorizeAction(authorization.ObjectReservation, authorization.ActionView), s.ListReservations)
	api.POST("/reservations", s.authorizeAction(authorization.ObjectReservation, authorization.ActionReservationEdit), s.CreateReservation)
	api.GET("/reservations/:id", s.authorizeAction(authorization.ObjectReservation, authorization.ActionView), s.GetReservationByID)
	api.POST("/reservations/:id/confirm", s.authorizeAction(authorization.ObjectReservation, authorization.ActionReservationEdit), s.ConfirmReservation)
	api.POST("/reservations/:id/cancel", s.authorizeAction(authorization.ObjectReservation, authorization.ActionReservationEdit), s.CancelReservation)
	api.POST("/reservations/:id/deposits", s.authorizeAction(authorization.ObjectReservation, authorization.ActionReservationEdit), s.Idempotent("reservation.deposit"), s.AddReservationDeposit)
	api.POST("/reservations/:id/check-in", s.authorizeAction(authorization.ObjectReservation, authorization.ActionReservationEdit), s.PromoteReservation)

	// -------- Invoices --------
	api.GET("/invoices", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.GET("/invoices/:id", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.GET("/invoices/:id/pdf", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionView), s.RenderInvoice)

	// -------- Daily register --------
	api.GET("/register/check", s.authorizeAction(authorization.ObjectRegister, authorization.ActionView), s.CheckRegister)
	api.GET("/register", s.authorizeAction(authorization.ObjectRegister, authorization.ActionView), s.GetRegister)
	api.GET("/register/export.xlsx", s.authorizeAction(authorization.ObjectRegister, authorization.ActionRegisterExport), s.ExportRegisterXLSX)
	api.GET("/register/export.pdf", s.authorizeAction(authorization.ObjectRegister, authorization.ActionRegisterExport), s.ExportRegisterPDF)

	api.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
