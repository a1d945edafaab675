package orgbilling

import (
	"github.com/voxpractice/cadence/internal/orgbilling/service"
	"go.uber.org/fx"
)

var Module = fx.Module("orgbilling.service",
	fx.Provide(service.NewService),
)
