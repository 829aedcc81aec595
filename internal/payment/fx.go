package payment

import (
	"github.com/shulekit/shulekit/internal/payment/repository"
	"github.com/shulekit/shulekit/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
