package logger

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	gormlogger "gorm.io/gorm/logger"
)

var (
	Log        *zap.Logger
	gormLogger GormLoggerInterface
)

// GormLoggerInterface defines the interface for our GormLogger
type GormLoggerInterface interface {
	gormlogger.Interface
}

// GormLogger implements GormLoggerInterface
type GormLogger struct {
	*zap.Logger
	LogLevel      gormlogger.LogLevel
	SlowThreshold time.Duration
	ZapLogLevel   zapcore.Level
	redactors     []*regexp.Regexp
}

// Options controls how the global logger is built.
type Options struct {
	Debug      bool
	JSONOutput bool
	// LogFile, when set, adds a rotating JSON file sink next to the console output.
	LogFile string
}

// defaultSensitiveWords are masked in traced SQL. Auth tokens travel in the
// libSQL URL query string, so "token" and "authToken" matter most here.
var defaultSensitiveWords = []string{"password", "authToken", "token", "secret", "apikey", "credential"}

// Init initializes the global Zap logger and the GORM logger wrapper.
func Init(opts Options) error {
	var config zap.Config
	var encoderConfig zapcore.EncoderConfig

	if opts.Debug {
		config = zap.NewDevelopmentConfig()
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	} else {
		config = zap.NewProductionConfig()
		encoderConfig = zap.NewProductionEncoderConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		config.DisableCaller = true
	}

	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.LevelKey = "level"
	encoderConfig.NameKey = "logger"
	encoderConfig.MessageKey = "msg"
	encoderConfig.StacktraceKey = "stacktrace"
	if !config.DisableCaller {
		encoderConfig.CallerKey = "caller"
	}

	config.EncoderConfig = encoderConfig
	config.DisableStacktrace = !opts.Debug

	if opts.JSONOutput {
		config.Encoding = "json"
	} else {
		config.Encoding = "console"
	}

	buildOptions := []zap.Option{}
	if !config.DisableCaller {
		buildOptions = append(buildOptions, zap.AddCallerSkip(1))
	}
	if opts.LogFile != "" {
		fileEncoderConfig := encoderConfig
		fileEncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder // no ANSI colors in files
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.LogFile,
				MaxSize:    50, // megabytes
				MaxBackups: 5,
				MaxAge:     28, // days
				Compress:   true,
			}),
			config.Level,
		)
		buildOptions = append(buildOptions, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	var err error
	Log, err = config.Build(buildOptions...)
	if err != nil {
		return fmt.Errorf("failed to build zap logger: %w", err)
	}

	gormLogger = NewGormLogger(Log, opts.Debug)
	Log.Info("Logger initialized",
		zap.Bool("debug_mode", opts.Debug),
		zap.Bool("json_output", opts.JSONOutput),
		zap.String("log_file", opts.LogFile),
		zap.String("log_level", config.Level.Level().String()),
	)
	return nil
}

// NewGormLogger creates a new GormLogger wrapper around base.
func NewGormLogger(base *zap.Logger, debug bool) GormLoggerInterface {
	gormLevel := gormlogger.Warn
	zapLevel := zapcore.WarnLevel
	if debug {
		gormLevel = gormlogger.Info // GORM Info includes SQL in debug
		zapLevel = zapcore.DebugLevel
	}

	if base == nil {
		panic("zap logger is nil when creating GormLogger")
	}

	return &GormLogger{
		Logger:        base.Named("gorm"),
		LogLevel:      gormLevel,
		SlowThreshold: 500 * time.Millisecond, // remote round trips are slower than local ones
		ZapLogLevel:   zapLevel,
		redactors:     compileRedactors(defaultSensitiveWords),
	}
}

func compileRedactors(words []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(words))
	for _, word := range words {
		// key=value, key: value, key='value'
		res = append(res, regexp.MustCompile(fmt.Sprintf(`(?i)(%s\s*[:=]\s*)('.*?'|".*?"|[^\s&]+)`, regexp.QuoteMeta(word))))
	}
	return res
}

// Redact masks values assigned to sensitive keys.
func (l *GormLogger) Redact(sql string) string {
	for _, re := range l.redactors {
		sql = re.ReplaceAllString(sql, `${1}***REDACTED***`)
	}
	return sql
}

// LogMode sets the GORM log level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	switch level {
	case gormlogger.Silent:
		newLogger.ZapLogLevel = zapcore.FatalLevel + 1
	case gormlogger.Error:
		newLogger.ZapLogLevel = zapcore.ErrorLevel
	case gormlogger.Warn:
		newLogger.ZapLogLevel = zapcore.WarnLevel
	default:
		// Gorm Info artinya SQL logging, dipetakan ke Zap Debug
		newLogger.ZapLogLevel = zapcore.DebugLevel
	}
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		l.Logger.WithOptions(zap.AddCallerSkip(1)).Info(l.Redact(fmt.Sprintf(msg, data...)))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		l.Logger.WithOptions(zap.AddCallerSkip(1)).Warn(l.Redact(fmt.Sprintf(msg, data...)))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		l.Logger.WithOptions(zap.AddCallerSkip(1)).Error(l.Redact(fmt.Sprintf(msg, data...)))
	}
}

// Trace logs SQL statements, slow statements and SQL errors.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	logger := l.Logger.WithOptions(zap.AddCallerSkip(1))

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error && !strings.Contains(err.Error(), "record not found"):
		sql, rows := fc()
		logger.Error("SQL Error", l.traceFields(elapsed, sql, rows, zap.Error(err))...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		logger.Warn("Slow Query", l.traceFields(elapsed, sql, rows, zap.Duration("threshold", l.SlowThreshold))...)
	case l.LogLevel >= gormlogger.Info:
		sql, rows := fc()
		logger.Debug("SQL Query", l.traceFields(elapsed, sql, rows)...)
	}
}

func (l *GormLogger) traceFields(elapsed time.Duration, sql string, rows int64, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.Duration("duration_ms", elapsed.Round(time.Millisecond)),
		zap.String("sql", l.Redact(sql)),
	}
	if rows > -1 { // -1 untuk DDL dan statement tanpa rows
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	return append(fields, extra...)
}

// GetGormLogger returns the initialized GORM logger instance.
func GetGormLogger() GormLoggerInterface {
	if gormLogger == nil {
		panic("GormLogger is not initialized. Call logger.Init() first.")
	}
	return gormLogger
}
