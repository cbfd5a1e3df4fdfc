// Package logging is the leveled logger shared by trexanalyze and the tools.
//
// Lines go to stderr as "<time> [LEVEL] message" so they never mix with the
// summary and reports written to stdout.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level orders messages; anything below the current level is dropped.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("Level(%d)", int32(l))
	}
	return levelTags[l]
}

// ParseLevel maps a --log-level value to a Level. "warning" is accepted as
// an alias of warn.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

var (
	threshold atomic.Int32
	out       = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

func init() { threshold.Store(int32(LevelInfo)) }

// SetLogLevel applies a --log-level value. It returns false and leaves the
// level alone when s is not a known level name.
func SetLogLevel(s string) bool {
	l, ok := ParseLevel(s)
	if ok {
		threshold.Store(int32(l))
	}
	return ok
}

// CurrentLevel is the level set by the last successful SetLogLevel.
func CurrentLevel() Level { return Level(threshold.Load()) }

// Enabled reports whether messages at l are written.
func Enabled(l Level) bool { return l >= CurrentLevel() }

// SetOutput redirects all log lines, e.g. to io.Discard in tests.
func SetOutput(w io.Writer) { out.SetOutput(w) }

func write(l Level, format string, args []interface{}) {
	if !Enabled(l) {
		return
	}
	msg := format
	// A bare message is not a format string; paths may contain '%'.
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	out.Printf("[%s] %s", l, msg)
}

// Debugf, Infof, Warnf and Errorf log one line at their level.
func Debugf(format string, args ...interface{}) { write(LevelDebug, format, args) }
func Infof(format string, args ...interface{})  { write(LevelInfo, format, args) }
func Warnf(format string, args ...interface{})  { write(LevelWarn, format, args) }
func Errorf(format string, args ...interface{}) { write(LevelError, format, args) }

// TimeTrack logs at debug level how long label took since start:
//
//	defer logging.TimeTrack(time.Now(), "detection pass")
func TimeTrack(start time.Time, label string) {
	Debugf("%s took %s", label, time.Since(start).Round(time.Microsecond))
}
