package feestructure

import (
	"github.com/shulekit/shulekit/internal/feestructure/repository"
	"github.com/shulekit/shulekit/internal/feestructure/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feestructure.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
