package school

import (
	"github.com/shulekit/shulekit/internal/school/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("school",
	fx.Provide(repository.Provide),
)
