package logging

import (
	"go.uber.org/zap"
)

var Logger *zap.SugaredLogger = zap.NewNop().Sugar()

// Init builds the process-wide logger. Debug mode uses the development
// config; otherwise production config capped at warn so scanner chatter
// stays out of CI logs.
func Init(debug bool) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	logger, err := cfg.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	Logger = logger.Sugar()
}
