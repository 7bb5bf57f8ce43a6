// Package log provides the logging contract shared by every component of the
// admission library, together with minimal implementations for applications
// that do not bring their own logger.
package log

import (
	"fmt"
	golog "log"
)

// LogLevel represents the level of log severity.
type LogLevel int

const (
	FatalLevel LogLevel = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	NoneLevel
)

// Logger is the contract implemented by every logger accepted by the library.
// Implementations must be safe for concurrent use.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Fatalln(args ...any)

	WithFields(fields ...any) Logger
	WithDefaultMessageTemplate(message string) Logger

	Sync() error
}

// GoLogger is a Logger backed by the standard library logger. It is the
// default when no logger is configured.
type GoLogger struct {
	Level  LogLevel
	fields []any
}

func (l *GoLogger) print(args ...any) {
	if len(l.fields) > 0 {
		args = append(append([]any{}, l.fields...), args...)
	}

	golog.Print(args...)
}

// Info implements Info Logger interface function.
func (l *GoLogger) Info(args ...any) {
	if l.Level >= InfoLevel {
		l.print(args...)
	}
}

// Infof implements Infof Logger interface function.
func (l *GoLogger) Infof(format string, args ...any) {
	if l.Level >= InfoLevel {
		l.print(fmt.Sprintf(format, args...))
	}
}

// Infoln implements Infoln Logger interface function.
func (l *GoLogger) Infoln(args ...any) {
	if l.Level >= InfoLevel {
		l.print(fmt.Sprintln(args...))
	}
}

// Error implements Error Logger interface function.
func (l *GoLogger) Error(args ...any) {
	if l.Level >= ErrorLevel {
		l.print(args...)
	}
}

// Errorf implements Errorf Logger interface function.
func (l *GoLogger) Errorf(format string, args ...any) {
	if l.Level >= ErrorLevel {
		l.print(fmt.Sprintf(format, args...))
	}
}

// Errorln implements Errorln Logger interface function.
func (l *GoLogger) Errorln(args ...any) {
	if l.Level >= ErrorLevel {
		l.print(fmt.Sprintln(args...))
	}
}

// Warn implements Warn Logger interface function.
func (l *GoLogger) Warn(args ...any) {
	if l.Level >= WarnLevel {
		l.print(args...)
	}
}

// Warnf implements Warnf Logger interface function.
func (l *GoLogger) Warnf(format string, args ...any) {
	if l.Level >= WarnLevel {
		l.print(fmt.Sprintf(format, args...))
	}
}

// Warnln implements Warnln Logger interface function.
func (l *GoLogger) Warnln(args ...any) {
	if l.Level >= WarnLevel {
		l.print(fmt.Sprintln(args...))
	}
}

// Debug implements Debug Logger interface function.
func (l *GoLogger) Debug(args ...any) {
	if l.Level >= DebugLevel {
		l.print(args...)
	}
}

// Debugf implements Debugf Logger interface function.
func (l *GoLogger) Debugf(format string, args ...any) {
	if l.Level >= DebugLevel {
		l.print(fmt.Sprintf(format, args...))
	}
}

// Debugln implements Debugln Logger interface function.
func (l *GoLogger) Debugln(args ...any) {
	if l.Level >= DebugLevel {
		l.print(fmt.Sprintln(args...))
	}
}

// Fatal implements Fatal Logger interface function.
func (l *GoLogger) Fatal(args ...any) { golog.Fatal(args...) }

// Fatalf implements Fatalf Logger interface function.
func (l *GoLogger) Fatalf(format string, args ...any) { golog.Fatalf(format, args...) }

// Fatalln implements Fatalln Logger interface function.
func (l *GoLogger) Fatalln(args ...any) { golog.Fatalln(args...) }

// WithFields implements WithFields Logger interface function.
//
//nolint:ireturn
func (l *GoLogger) WithFields(fields ...any) Logger {
	combined := append(append([]any{}, l.fields...), fields...)

	return &GoLogger{Level: l.Level, fields: combined}
}

// WithDefaultMessageTemplate sets the default message template for the logger.
//
//nolint:ireturn
func (l *GoLogger) WithDefaultMessageTemplate(message string) Logger {
	return l.WithFields(message)
}

// Sync implements Sync Logger interface function.
func (l *GoLogger) Sync() error { return nil }
