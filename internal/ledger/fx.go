package ledger

import (
	"github.com/shulekit/shulekit/internal/ledger/repository"
	"github.com/shulekit/shulekit/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
