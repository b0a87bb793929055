package logger

import (
	"go.uber.org/zap"
)

// Logger is used for recoverable anomalies found while decoding
// (damaged boot sectors, torn fixups). Decoding carries on after a
// warning so the messages are the only trace of the damage.
var Logger *zap.Logger

func init() {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.TimeKey = ""
	lc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	Logger, _ = lc.Build()
}

// SetDebug lowers the level so decode progress is also reported.
func SetDebug(enabled bool) {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.TimeKey = ""
	if !enabled {
		lc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	new_logger, err := lc.Build()
	if err == nil {
		Logger = new_logger
	}
}
