package debug

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	rtdebug "runtime/debug"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	logMu  sync.RWMutex
	logger *slog.Logger

	prefix = color.New(color.FgYellow, color.Bold)
)

func init() {
	SetColor(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	logger = NewLogger(os.Stderr, slog.LevelInfo)
}

// SetColor turns the colored diagnostics prefix on or off.
func SetColor(v bool) {
	if v {
		prefix.EnableColor()
		return
	}
	prefix.DisableColor()
}

// NewLogger returns a text logger whose lines start with the setdata
// prefix.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	pw := &prefixWriter{w: w}
	return slog.New(slog.NewTextHandler(pw, &slog.HandlerOptions{Level: level}))
}

type prefixWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *prefixWriter) Write(d []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, prefix.Sprint("[setdata]")+" "); err != nil {
		return 0, err
	}
	return p.w.Write(d)
}

// Logger returns the logger diagnostics are written to.
func Logger() *slog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// SetLogger replaces the diagnostics logger. nil restores the default.
func SetLogger(l *slog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	if l == nil {
		l = NewLogger(os.Stderr, slog.LevelInfo)
	}
	logger = l
}

// Warn reports a non-fatal anomaly.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Logf writes a debug trace line to stderr. Maps, slices and
// json.Marshalers are rendered as JSON.
func Logf(msg string, args ...any) {
	for i := range args {
		a := args[i]
		switch a.(type) {
		case map[string]any, []any, json.Marshaler:
			d, err := json.Marshal(a)
			if err != nil {
				args[i] = fmt.Sprintf("%v", a)
				continue
			}
			args[i] = string(d)
		}
	}
	fmt.Fprintf(os.Stderr, msg, args...)
}

// Recover reports a panic in a user supplied callback and resumes.
// Usage: defer debug.Recover("watch callback")
func Recover(op string) {
	if r := recover(); r != nil {
		Logger().Error("recovered panic", "op", op, "panic", r, "stack", string(rtdebug.Stack()))
	}
}
