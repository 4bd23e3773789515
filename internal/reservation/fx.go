package reservation

import (
	"github.com/smallbiznis/frontdesk/internal/reservation/repository"
	"github.com/smallbiznis/frontdesk/internal/reservation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reservation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
