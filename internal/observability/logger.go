package observability

import (
	"fmt"
	"os"
	"time"
)

// Logger writes leveled events to an EventLog. A nil *Logger, or one built
// by Nop, drops everything.
type Logger struct {
	log EventLog
	now func() time.Time
}

func NewLogger(log EventLog) *Logger {
	return &Logger{log: log, now: time.Now}
}

func Nop() *Logger {
	return &Logger{}
}

func (l *Logger) Info(eventType, msg string, data map[string]any) {
	l.emit(LevelInfo, eventType, msg, data)
}

func (l *Logger) Warn(eventType, msg string, data map[string]any) {
	l.emit(LevelWarn, eventType, msg, data)
}

func (l *Logger) Error(eventType, msg string, data map[string]any) {
	l.emit(LevelError, eventType, msg, data)
}

func (l *Logger) emit(level, eventType, msg string, data map[string]any) {
	if l == nil || l.log == nil {
		return
	}
	err := l.log.Write(Event{
		Time:    l.now(),
		Level:   level,
		Type:    eventType,
		Message: msg,
		Data:    data,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "event log: %v\n", err)
	}
}
