// internal/logger/styled.go
package logger

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
)

// StyledLogger wraps slog.Logger with theme-aware formatting methods for the
// handful of call sites that benefit from highlighted values (cache tags,
// origins, byte/request counts) in pretty terminal mode.
type StyledLogger struct {
	logger *slog.Logger
	theme  *Theme
}

// NewStyledLogger creates a new styled logger with the given theme.
func NewStyledLogger(logger *slog.Logger, theme *Theme) *StyledLogger {
	return &StyledLogger{
		logger: logger,
		theme:  theme,
	}
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

// InfoWithCount highlights a simple integer count inline in the message.
func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.theme.Counts}.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

// InfoWithOrigin highlights the origin host:port a request was forwarded to.
func (sl *StyledLogger) InfoWithOrigin(msg string, origin string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.theme.Origin}.Sprint(origin))
	sl.logger.Info(styledMsg, args...)
}

// WarnWithOrigin is the Warn-level counterpart of InfoWithOrigin.
func (sl *StyledLogger) WarnWithOrigin(msg string, origin string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.theme.Origin}.Sprint(origin))
	sl.logger.Warn(styledMsg, args...)
}

// ErrorWithOrigin is the Error-level counterpart of InfoWithOrigin.
func (sl *StyledLogger) ErrorWithOrigin(msg string, origin string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.theme.Origin}.Sprint(origin))
	sl.logger.Error(styledMsg, args...)
}

// InfoWithCacheTag highlights a single-character cache tag (H/M/-) in the
// colour associated with a hit or a miss.
func (sl *StyledLogger) InfoWithCacheTag(msg string, tag string, args ...any) {
	colour := sl.theme.CacheMiss
	if tag == "H" {
		colour = sl.theme.CacheHit
	}
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{colour}.Sprint("[", tag, "]"))
	sl.logger.Info(styledMsg, args...)
}

// InfoWithStatus highlights an HTTP status code, colouring 2xx/3xx distinctly
// from 4xx/5xx.
func (sl *StyledLogger) InfoWithStatus(msg string, status int, args ...any) {
	colour := sl.theme.StatusOK
	if status >= 400 {
		colour = sl.theme.StatusErr
	}
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{colour}.Sprint(status))
	sl.logger.Info(styledMsg, args...)
}

// InfoWithNumbers highlights a sequence of integers substituted into msg via fmt verbs.
func (sl *StyledLogger) InfoWithNumbers(msg string, numbers ...int64) {
	var formattedNums []string
	for _, num := range numbers {
		formattedNums = append(formattedNums, pterm.Style{sl.theme.Numbers}.Sprint(num))
	}

	styledMsg := fmt.Sprintf(msg, toInterfaceSlice(formattedNums)...)
	sl.logger.Info(styledMsg)
}

// GetUnderlying returns the underlying slog.Logger for cases where direct access is needed.
func (sl *StyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

// WithAttrs creates a new StyledLogger with additional structured attributes.
func (sl *StyledLogger) WithAttrs(attrs ...slog.Attr) *StyledLogger {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}

	return &StyledLogger{
		logger: sl.logger.With(args...),
		theme:  sl.theme,
	}
}

// With creates a new StyledLogger with additional key-value pairs.
func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{
		logger: sl.logger.With(args...),
		theme:  sl.theme,
	}
}

func toInterfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}

// NewWithTheme creates both a regular logger and a styled logger.
func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	appTheme := GetTheme(cfg.Theme)
	styledLogger := NewStyledLogger(logger, appTheme)

	return logger, styledLogger, cleanup, nil
}
