// Package zap implements the admission log.Logger contract on top of
// go.uber.org/zap, with OpenTelemetry log bridging wired in by the injector.
package zap

import (
	"github.com/ProveniaLabs/lib-admission/admission/log"
	"go.uber.org/zap"
)

// ZapWithTraceLogger is a Logger backed by a zap sugared logger. When a
// default message template is set (usually the request id), it is prepended
// to every entry so log lines stay correlated with their request.
type ZapWithTraceLogger struct {
	Logger                 *zap.SugaredLogger
	defaultMessageTemplate string
}

// hydrateArgs prepends the default message template to the log arguments.
func hydrateArgs(template string, args []any) []any {
	if template == "" {
		return args
	}

	return append([]any{template}, args...)
}

func (l *ZapWithTraceLogger) logWithHydration(fn func(args ...any), args ...any) {
	fn(hydrateArgs(l.defaultMessageTemplate, args)...)
}

func (l *ZapWithTraceLogger) logfWithHydration(fn func(format string, args ...any), format string, args ...any) {
	fn(l.defaultMessageTemplate+format, args...)
}

// Info implements Info Logger interface function.
func (l *ZapWithTraceLogger) Info(args ...any) { l.logWithHydration(l.Logger.Info, args...) }

// Infof implements Infof Logger interface function.
func (l *ZapWithTraceLogger) Infof(format string, args ...any) {
	l.logfWithHydration(l.Logger.Infof, format, args...)
}

// Infoln implements Infoln Logger interface function.
func (l *ZapWithTraceLogger) Infoln(args ...any) { l.logWithHydration(l.Logger.Infoln, args...) }

// Error implements Error Logger interface function.
func (l *ZapWithTraceLogger) Error(args ...any) { l.logWithHydration(l.Logger.Error, args...) }

// Errorf implements Errorf Logger interface function.
func (l *ZapWithTraceLogger) Errorf(format string, args ...any) {
	l.logfWithHydration(l.Logger.Errorf, format, args...)
}

// Errorln implements Errorln Logger interface function.
func (l *ZapWithTraceLogger) Errorln(args ...any) { l.logWithHydration(l.Logger.Errorln, args...) }

// Warn implements Warn Logger interface function.
func (l *ZapWithTraceLogger) Warn(args ...any) { l.logWithHydration(l.Logger.Warn, args...) }

// Warnf implements Warnf Logger interface function.
func (l *ZapWithTraceLogger) Warnf(format string, args ...any) {
	l.logfWithHydration(l.Logger.Warnf, format, args...)
}

// Warnln implements Warnln Logger interface function.
func (l *ZapWithTraceLogger) Warnln(args ...any) { l.logWithHydration(l.Logger.Warnln, args...) }

// Debug implements Debug Logger interface function.
func (l *ZapWithTraceLogger) Debug(args ...any) { l.logWithHydration(l.Logger.Debug, args...) }

// Debugf implements Debugf Logger interface function.
func (l *ZapWithTraceLogger) Debugf(format string, args ...any) {
	l.logfWithHydration(l.Logger.Debugf, format, args...)
}

// Debugln implements Debugln Logger interface function.
func (l *ZapWithTraceLogger) Debugln(args ...any) { l.logWithHydration(l.Logger.Debugln, args...) }

// Fatal implements Fatal Logger interface function.
func (l *ZapWithTraceLogger) Fatal(args ...any) { l.logWithHydration(l.Logger.Fatal, args...) }

// Fatalf implements Fatalf Logger interface function.
func (l *ZapWithTraceLogger) Fatalf(format string, args ...any) {
	l.logfWithHydration(l.Logger.Fatalf, format, args...)
}

// Fatalln implements Fatalln Logger interface function.
func (l *ZapWithTraceLogger) Fatalln(args ...any) { l.logWithHydration(l.Logger.Fatalln, args...) }

// WithFields returns a logger with the given structured fields attached to
// every subsequent entry.
//
//nolint:ireturn
func (l *ZapWithTraceLogger) WithFields(fields ...any) log.Logger {
	return &ZapWithTraceLogger{
		Logger:                 l.Logger.With(fields...),
		defaultMessageTemplate: l.defaultMessageTemplate,
	}
}

// WithDefaultMessageTemplate sets the default message template for the logger.
//
//nolint:ireturn
func (l *ZapWithTraceLogger) WithDefaultMessageTemplate(message string) log.Logger {
	return &ZapWithTraceLogger{
		Logger:                 l.Logger,
		defaultMessageTemplate: message,
	}
}

// Sync flushes any buffered log entries.
func (l *ZapWithTraceLogger) Sync() error {
	return l.Logger.Sync()
}
