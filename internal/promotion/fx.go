package promotion

import (
	"github.com/shulekit/shulekit/internal/promotion/lock"
	"github.com/shulekit/shulekit/internal/promotion/repository"
	"github.com/shulekit/shulekit/internal/promotion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promotion.service",
	fx.Provide(lock.NewRunGuard),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
