package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// consoleHandler writes one line per record:
//
//	2026-01-02 15:04:05 INF [workflow] 3f2a9c1e/map: chunk summarized chunk=2 quality=DETAILED
//
// component, job_id and stage never appear as fields; they form the prefix.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	addSource bool
	bound     []field
	group     string
}

type field struct {
	key string
	val slog.Value
}

func newConsoleHandler(out io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: new(sync.Mutex), out: out, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = appendFields(append([]field(nil), h.bound...), h.group, attrs)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := append([]field(nil), h.bound...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendFields(fields, h.group, []slog.Attr{a})
		return true
	})

	var component, jobID, stage string
	rest := fields[:0]
	seen := make(map[string]int, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = f.val.String()
			continue
		case FieldJobID:
			jobID = f.val.String()
			continue
		case FieldStage:
			stage = f.val.String()
			continue
		}
		if i, ok := seen[f.key]; ok {
			rest[i] = f
			continue
		}
		seen[f.key] = len(rest)
		rest = append(rest, f)
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b bytes.Buffer
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	if component != "" {
		fmt.Fprintf(&b, " [%s]", component)
	}
	if subject := jobSubject(jobID, stage); subject != "" {
		b.WriteByte(' ')
		b.WriteString(subject)
		b.WriteByte(':')
	}
	b.WriteByte(' ')
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "-"
	}
	b.WriteString(msg)
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(renderValue(f.val))
	}
	if h.addSource && r.PC != 0 {
		if src := r.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(b.Bytes())
	return err
}

// jobSubject renders the short job id (first UUID segment) and stage.
func jobSubject(jobID, stage string) string {
	jobID = strings.TrimSpace(jobID)
	if i := strings.IndexByte(jobID, '-'); i > 0 {
		jobID = jobID[:i]
	}
	stage = strings.TrimSpace(stage)
	switch {
	case jobID != "" && stage != "":
		return jobID + "/" + stage
	case jobID != "":
		return jobID
	default:
		return stage
	}
}

func appendFields(dst []field, group string, attrs []slog.Attr) []field {
	for _, a := range attrs {
		v := a.Value.Resolve()
		if a.Key == "" && v.Kind() != slog.KindGroup {
			continue
		}
		if v.Kind() == slog.KindGroup {
			dst = appendFields(dst, joinKey(group, a.Key), v.Group())
			continue
		}
		dst = append(dst, field{key: joinKey(group, a.Key), val: v})
	}
	return dst
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\r\"=") {
		return strconv.Quote(s)
	}
	return s
}
