package logger

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// FilterKind selects how a Filter treats log messages.
type FilterKind string

const (
	FilterShowAll     FilterKind = "show_all"
	FilterHideAll     FilterKind = "hide_all"
	FilterShowPattern FilterKind = "show_pattern"
	FilterHidePattern FilterKind = "hide_pattern"
)

// Filter decides which log messages are emitted. Patterns are RE2, so
// filtering behaves identically on every node.
type Filter struct {
	kind    FilterKind
	pattern *regexp.Regexp
}

func ShowAll() *Filter { return &Filter{kind: FilterShowAll} }
func HideAll() *Filter { return &Filter{kind: FilterHideAll} }

func ShowPattern(pattern string) (*Filter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile show pattern: %w", err)
	}
	return &Filter{kind: FilterShowPattern, pattern: re}, nil
}

func HidePattern(pattern string) (*Filter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile hide pattern: %w", err)
	}
	return &Filter{kind: FilterHidePattern, pattern: re}, nil
}

// ParseFilter builds a Filter from its config representation.
func ParseFilter(kind, pattern string) (*Filter, error) {
	switch FilterKind(kind) {
	case FilterShowAll, "":
		return ShowAll(), nil
	case FilterHideAll:
		return HideAll(), nil
	case FilterShowPattern:
		return ShowPattern(pattern)
	case FilterHidePattern:
		return HidePattern(pattern)
	default:
		return nil, fmt.Errorf("unknown log filter kind: %q", kind)
	}
}

// Allows reports whether a message passes the filter.
func (f *Filter) Allows(msg string) bool {
	switch f.kind {
	case FilterHideAll:
		return false
	case FilterShowPattern:
		return f.pattern.MatchString(msg)
	case FilterHidePattern:
		return !f.pattern.MatchString(msg)
	default:
		return true
	}
}

// FilterHandler wraps a slog.Handler and drops records whose message
// does not pass the filter.
type FilterHandler struct {
	inner  slog.Handler
	filter *Filter
}

func NewFilterHandler(inner slog.Handler, filter *Filter) *FilterHandler {
	return &FilterHandler{inner: inner, filter: filter}
}

func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *FilterHandler) Handle(ctx context.Context, rec slog.Record) error {
	if !h.filter.Allows(rec.Message) {
		return nil
	}
	return h.inner.Handle(ctx, rec)
}

func (h *FilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FilterHandler{inner: h.inner.WithAttrs(attrs), filter: h.filter}
}

func (h *FilterHandler) WithGroup(name string) slog.Handler {
	return &FilterHandler{inner: h.inner.WithGroup(name), filter: h.filter}
}
