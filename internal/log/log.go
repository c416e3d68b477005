// Package log provides centralized logging initialization using zap.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init initializes the package-level logger.
// In debug mode it uses a human-readable console encoder at debug level;
// otherwise a JSON encoder at info level, matching the teacher's
// production/development split.
func Init(debug bool) error {
	var encoderConfig zapcore.EncoderConfig
	var level zapcore.Level
	if debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		level = zapcore.InfoLevel
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.LevelKey = "level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if debug {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	baseLogger = zap.New(core, zap.AddCaller())
	log = baseLogger.Sugar()
	return nil
}

// GetSugaredLogger returns the process-wide sugared logger, lazily
// falling back to a production logger if Init was never called (e.g.
// in tests that don't care about log output).
func GetSugaredLogger() *zap.SugaredLogger {
	if log == nil {
		baseLogger, _ = zap.NewProduction()
		log = baseLogger.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Debug(args ...interface{}) { GetSugaredLogger().Debug(args...) }
func Info(args ...interface{})  { GetSugaredLogger().Info(args...) }
func Warn(args ...interface{})  { GetSugaredLogger().Warn(args...) }
func Error(args ...interface{}) { GetSugaredLogger().Error(args...) }

func Debugf(template string, args ...interface{}) { GetSugaredLogger().Debugf(template, args...) }
func Infof(template string, args ...interface{})  { GetSugaredLogger().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { GetSugaredLogger().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { GetSugaredLogger().Errorf(template, args...) }

func Fatalf(template string, args ...interface{}) {
	GetSugaredLogger().Fatalf(template, args...)
	os.Exit(1)
}
