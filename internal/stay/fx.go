package stay

import (
	"github.com/smallbiznis/frontdesk/internal/stay/repository"
	"github.com/smallbiznis/frontdesk/internal/stay/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stay.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
