package logger

import (
	"bytes"
	"fmt"
	"os"
	"time"

	conf "github.com/abcfe/abcfe-keyring/config"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is a no-op until InitLogger runs, so library code may log unconditionally.
var logger = zap.NewNop()

func InitLogger(cfg *conf.Config) error {
	li := cfg.GetLogInfoConfig()
	now := time.Now()
	lPath := fmt.Sprintf("%s_%s.log", li.Path, now.Format("2006-01-02"))

	// --debug forces the alpha level (console tee, debug verbosity)
	for _, arg := range os.Args {
		if arg == "-debug" || arg == "--debug" {
			cfg.Common.Level = "alpha"
			break
		}
	}
	if cfg.Common.Level == "" {
		cfg.Common.Level = "prod"
	}

	rotator, err := rotatelogs.New(
		lPath,
		rotatelogs.WithMaxAge(time.Duration(li.MaxAgeHour)*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(li.RotateHour)*time.Hour))
	if err != nil {
		return err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "date",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	w := zapcore.AddSync(rotator)
	var core zapcore.Core
	if cfg.Common.Level == "alpha" {
		core = zapcore.NewTee(
			zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zap.DebugLevel),
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), zap.DebugLevel),
		)
	} else {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zap.InfoLevel)
	}
	SetLogger(zap.New(core).Named(cfg.Common.ServiceName))

	logger.Info("logging init file start")
	return nil
}

// SetLogger replaces the package logger. A nil l restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Sync flushes buffered entries.
func Sync() {
	_ = logger.Sync()
}

func join(ctx []interface{}) string {
	var b bytes.Buffer
	for _, str := range ctx {
		b.WriteString(fmt.Sprintf("%v", str))
	}
	return b.String()
}

func Debug(ctx ...interface{}) {
	logger.Debug("debug", zap.String("Debug", join(ctx)))
}

// Info is a convenient alias for Root().Info
func Info(ctx ...interface{}) {
	logger.Info("info", zap.String("Info", join(ctx)))
}

// Warn is a convenient alias for Root().Warn
func Warn(ctx ...interface{}) {
	logger.Warn("warn", zap.String("Warn", join(ctx)))
}

// Error is a convenient alias for Root().Error
func Error(ctx ...interface{}) {
	logger.Error("error", zap.String("Err", join(ctx)))
}

// Error handling
func HandleErr(err error) {
	if err != nil {
		Error(err)
	}
}
