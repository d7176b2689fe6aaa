package logger

import (
	"context"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	moduleKey    = "module"
	requestIDKey = "requestID"
	identityKey  = "identity"
)

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex  = regexp.MustCompile(`eyJ[^\s]+`)
	userIDRegex = regexp.MustCompile(`\buser_id\s*=\s*\d+\b`)
)

func init() {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "message",
		},
	})
	logrus.SetOutput(os.Stdout)
}

// SetLevel changes the level of the standard logger. Unknown levels fall back to info.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// Logger is a module-tagged wrapper around a logrus entry
type Logger struct {
	entry *logrus.Entry
}

// New creates a new Logger on the standard logrus logger
func New() *Logger {
	return &Logger{entry: logrus.NewEntry(logrus.StandardLogger())}
}

// Anonymize replaces sensitive information in logs (emails, tokens, IDs)
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	s = userIDRegex.ReplaceAllString(s, "user_id=[USER_ID]")
	return s
}

func (l *Logger) log(module string, level logrus.Level, msg string, err error) {
	e := l.entry.WithField(moduleKey, module)
	if err != nil {
		e = e.WithField(logrus.ErrorKey, Anonymize(err.Error()))
	}
	e.Log(level, Anonymize(msg))
}

// --- Convenient methods ---
func (l *Logger) Info(module, msg string) {
	l.log(module, logrus.InfoLevel, msg, nil)
}

func (l *Logger) Debug(module, msg string) {
	l.log(module, logrus.DebugLevel, msg, nil)
}

func (l *Logger) Warn(module, msg string) {
	l.log(module, logrus.WarnLevel, msg, nil)
}

func (l *Logger) Error(module, msg string, err error) {
	l.log(module, logrus.ErrorLevel, msg, err)
}

// --- Request scoped loggers ---

type contextKeyLoggerType struct{}

var contextKeyLogger = &contextKeyLoggerType{}

// ContextWithLogger returns a context carrying a logger with a fresh request ID. A context
// which already has a logger is returned unchanged.
func ContextWithLogger(ctx context.Context) (context.Context, *Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	if l, ok := ctx.Value(contextKeyLogger).(*Logger); ok {
		return ctx, l
	}
	l := &Logger{entry: logrus.WithField(requestIDKey, uuid.NewString())}
	return context.WithValue(ctx, contextKeyLogger, l), l
}

// ContextWithIdentity adds the authenticated identity to the request logger.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	ctx, l := ContextWithLogger(ctx)
	l = &Logger{entry: l.entry.WithField(identityKey, identity)}
	return context.WithValue(ctx, contextKeyLogger, l)
}

// FromContext returns the request logger, or a plain logger when the context has none.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKeyLogger).(*Logger); ok {
			return l
		}
	}
	return New()
}

// RequestIDFromContext returns the request id of the context logger, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	l, ok := ctx.Value(contextKeyLogger).(*Logger)
	if !ok {
		return ""
	}
	s, _ := l.entry.Data[requestIDKey].(string)
	return s
}

// RequestID is a middleware that attaches a request scoped logger to every request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := ContextWithLogger(r.Context())
		if id := RequestIDFromContext(ctx); id != "" {
			w.Header().Set("X-Request-Id", id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
