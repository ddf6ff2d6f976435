package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaito/photomirror/internal/logger"
)

// excerptLines bounds the trailing log excerpt stored on the run record.
const excerptLines = 50

// runLog collects the human-readable line trail of one run. The full
// trail lives in memory for the duration of the run; only the trailing
// excerpt is persisted, the audit table carries the per-asset detail.
// A run executes on a single goroutine, so no locking.
type runLog struct {
	lines []string
	log   *logger.Logger
}

func newRunLog(log *logger.Logger) *runLog {
	return &runLog{log: log}
}

func (l *runLog) add(level, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] %s", time.Now().UTC().Format("2006-01-02 15:04:05"), level, msg)
	l.lines = append(l.lines, line)
	return msg
}

func (l *runLog) Infof(format string, args ...interface{}) {
	l.log.Info(l.add("INFO", format, args...))
}

func (l *runLog) Warnf(format string, args ...interface{}) {
	l.log.Warn(l.add("WARNING", format, args...))
}

func (l *runLog) Errorf(format string, args ...interface{}) {
	l.log.Error(l.add("ERROR", format, args...))
}

// excerpt returns the last excerptLines lines joined by newlines.
func (l *runLog) excerpt() string {
	lines := l.lines
	if len(lines) > excerptLines {
		lines = lines[len(lines)-excerptLines:]
	}
	return strings.Join(lines, "\n")
}
