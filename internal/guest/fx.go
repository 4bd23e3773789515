package guest

import (
	"github.com/smallbiznis/frontdesk/internal/guest/repository"
	"github.com/smallbiznis/frontdesk/internal/guest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("guest.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
