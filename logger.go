package securesheets

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// Logger is the minimal logging contract for debug output. Key/value pairs
// alternate in keysAndValues, structured-logging style. The client never
// requires a logger; without one, debug flags are inert.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SimpleLogger writes leveled key=value lines via the standard library logger.
// Meant for examples and quick local debugging, not production telemetry.
type SimpleLogger struct {
	l *log.Logger
}

// NewSimpleLogger returns a console logger writing to stderr.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{l: log.New(os.Stderr, "securesheets: ", log.LstdFlags)}
}

func (s *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	s.print("DEBUG", msg, keysAndValues)
}

func (s *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	s.print("INFO", msg, keysAndValues)
}

func (s *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	s.print("WARN", msg, keysAndValues)
}

func (s *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	s.print("ERROR", msg, keysAndValues)
}

func (s *SimpleLogger) print(level, msg string, keysAndValues []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	if len(keysAndValues)%2 == 1 {
		fmt.Fprintf(&b, " %v=?", keysAndValues[len(keysAndValues)-1])
	}
	s.l.Print(b.String())
}

// ZapLogger adapts a *zap.Logger to the Logger interface.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger for use with WithLogger. AddCallerSkip keeps
// caller annotations pointing at client call sites instead of this adapter.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.s.Debugw(msg, keysAndValues...)
}

func (z *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	z.s.Infow(msg, keysAndValues...)
}

func (z *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.s.Warnw(msg, keysAndValues...)
}

func (z *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	z.s.Errorw(msg, keysAndValues...)
}

// LogrusLogger adapts a *logrus.Logger to the Logger interface.
type LogrusLogger struct {
	l *logrus.Logger
}

// NewLogrusLogger wraps a logrus logger for use with WithLogger.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{l: l}
}

func (r *LogrusLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.l.WithFields(logrusFields(keysAndValues)).Debug(msg)
}

func (r *LogrusLogger) Info(msg string, keysAndValues ...interface{}) {
	r.l.WithFields(logrusFields(keysAndValues)).Info(msg)
}

func (r *LogrusLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.l.WithFields(logrusFields(keysAndValues)).Warn(msg)
}

func (r *LogrusLogger) Error(msg string, keysAndValues ...interface{}) {
	r.l.WithFields(logrusFields(keysAndValues)).Error(msg)
}

func logrusFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	if len(keysAndValues)%2 == 1 {
		fields[fmt.Sprint(keysAndValues[len(keysAndValues)-1])] = "?"
	}
	return fields
}
