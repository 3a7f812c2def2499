// Package logger builds the broker's structured logger: a colored
// terminal handler for local development, or slog's stock JSON handler
// when the configuration asks for machine-readable output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/axonmq/broker5/internal/config"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// New builds a *slog.Logger from cfg: text format gets the colored
// terminal handler, json gets slog's JSONHandler, and output selects
// stdout, stderr, or a file path.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	writer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	level := parseLevel(cfg.Level)

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})), nil
	}

	return slog.New(&ColoredHandler{writer: writer, minLevel: level}), nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logger: open %s: %w", output, err)
		}
		return f, nil
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ColoredHandler implements slog.Handler with a colorized level tag and a
// single-line key=value layout, for local terminal use.
type ColoredHandler struct {
	writer   io.Writer
	minLevel slog.Level
	attrs    []slog.Attr
	groups   []string
}

func (h *ColoredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *ColoredHandler) Handle(_ context.Context, r slog.Record) error {
	timestamp := r.Time.Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s %s %s", timestamp, h.coloredLevel(r.Level), r.Message)

	for _, attr := range h.attrs {
		line += fmt.Sprintf(" %s=%v", attr.Key, attr.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	line += "\n"

	_, err := h.writer.Write([]byte(line))
	return err
}

func (h *ColoredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &ColoredHandler{writer: h.writer, minLevel: h.minLevel, attrs: newAttrs, groups: h.groups}
}

func (h *ColoredHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name
	return &ColoredHandler{writer: h.writer, minLevel: h.minLevel, attrs: h.attrs, groups: newGroups}
}

func (h *ColoredHandler) coloredLevel(level slog.Level) string {
	var color, levelStr string
	switch level {
	case slog.LevelDebug:
		color, levelStr = colorGray, "DBG"
	case slog.LevelInfo:
		color, levelStr = colorBlue, "INF"
	case slog.LevelWarn:
		color, levelStr = colorYellow, "WRN"
	case slog.LevelError:
		color, levelStr = colorRed, "ERR"
	default:
		color, levelStr = colorReset, level.String()
	}
	return color + levelStr + colorReset
}
