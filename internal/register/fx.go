package register

import (
	"github.com/smallbiznis/frontdesk/internal/register/repository"
	"github.com/smallbiznis/frontdesk/internal/register/service"
	"go.uber.org/fx"
)

var Module = fx.Module("register.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
