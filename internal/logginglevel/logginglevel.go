package logginglevel

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // shared between the logger constructed in main() and the --debug flag
var Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
