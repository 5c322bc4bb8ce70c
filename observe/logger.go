package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"
)

// LogLevel orders log entries by severity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// ParseLogLevel maps a configured level name to a LogLevel. Anything
// unrecognized logs at info.
func ParseLogLevel(s string) LogLevel {
	for i, name := range levelNames {
		if s == name {
			return LogLevel(i)
		}
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

// sensitiveKeys are matched after lowercasing and dropping '-' and '_', so
// "X-Api-Key", "api_key" and "apiKey" all hit.
var sensitiveKeys = map[string]bool{
	"apikey":        true,
	"xapikey":       true,
	"authorization": true,
	"bearer":        true,
	"token":         true,
	"secret":        true,
	"password":      true,
	"credential":    true,
	"signingkey":    true,
}

func isSensitive(key string) bool {
	k := strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return -1
		}
		return unicode.ToLower(r)
	}, key)
	return sensitiveKeys[k]
}

// structuredLogger writes one JSON object per line.
type structuredLogger struct {
	level     LogLevel
	out       *lockedWriter
	now       func() time.Time
	baseAttrs map[string]any
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) writeLine(b []byte) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, _ = lw.w.Write(append(b, '\n'))
}

// NewLogger creates a new structured logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level:     ParseLogLevel(level),
		out:       &lockedWriter{w: w},
		now:       time.Now,
		baseAttrs: map[string]any{},
	}
}

// WithProvider returns a logger that stamps every entry with the provider
// attempt's identity. Loggers derived from the same root share the writer.
func (l *structuredLogger) WithProvider(meta ProviderMeta) Logger {
	attrs := make(map[string]any, len(l.baseAttrs)+3)
	for k, v := range l.baseAttrs {
		attrs[k] = v
	}

	attrs["provider.name"] = meta.Name
	if meta.Kind != "" {
		attrs["provider.kind"] = meta.Kind
	}
	if meta.Op != "" {
		attrs["provider.op"] = meta.Op
	}

	return &structuredLogger{
		level:     l.level,
		out:       l.out,
		now:       l.now,
		baseAttrs: attrs,
	}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.baseAttrs)+len(fields)+4)
	entry["timestamp"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	if id := RequestID(ctx); id != "" {
		entry["request_id"] = id
	}

	for k, v := range l.baseAttrs {
		entry[k] = v
	}

	for _, f := range fields {
		if isSensitive(f.Key) {
			entry[f.Key] = "[REDACTED]"
			continue
		}
		if err, ok := f.Value.(error); ok {
			entry[f.Key] = err.Error()
			continue
		}
		entry[f.Key] = f.Value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.out.writeLine(data)
}

type requestIDKey struct{}

// WithRequestID attaches a request identifier that every log entry written
// with the returned context carries.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the identifier set by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
