package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はGO_ENVに合わせたzapロガーを返す。
// prodはJSON、それ以外は人が読みやすいコンソール出力。
func New(goEnv string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if goEnv == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// テストやCLIの静かなモード用
func Nop() *zap.Logger {
	return zap.NewNop()
}
