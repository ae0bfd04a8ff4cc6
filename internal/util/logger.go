package util

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger writes colored console logs in dev and JSON in prod. Errors
// and above also go to stderr with the caller attached.
func NewZapLogger(app *AppConfig) *zap.SugaredLogger {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(app.LogLevel)); err != nil {
		lvl = zapcore.InfoLevel
	}
	level := zap.NewAtomicLevelAt(lvl)

	var encoder zapcore.Encoder
	if app.Env == EnvProd {
		prodCfg := zap.NewProductionEncoderConfig()
		prodCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(prodCfg)
	} else {
		developmentCfg := zap.NewDevelopmentEncoderConfig()
		developmentCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(developmentCfg)
	}

	below := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l < zapcore.ErrorLevel
	})
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), below),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(maxLevel(lvl, zapcore.ErrorLevel))),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.PanicLevel)).
		Sugar().
		With("service", app.Name, "env", app.Env)
}

func maxLevel(a, b zapcore.Level) zapcore.Level {
	if a > b {
		return a
	}
	return b
}
