package core

import (
	"context"

	"github.com/rs/zerolog"
)

type ServiceContext struct {
	Context context.Context
	Logger  zerolog.Logger
}
