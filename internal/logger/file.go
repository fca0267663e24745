package logger

import (
	"fmt"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultFileMaxAge is how long rotated log files are kept.
	DefaultFileMaxAge = 24 * time.Hour
	// DefaultFileRotationTime is how often a new log file is started.
	DefaultFileRotationTime = time.Hour
)

// OpenRotatingFile returns a write syncer backed by strftime-patterned log
// files, e.g. "garage-sentinel-%Y-%m-%d-%H-%M-%S.log".
func OpenRotatingFile(pattern string, maxAge, rotationTime time.Duration) (zapcore.WriteSyncer, error) {
	if maxAge <= 0 {
		maxAge = DefaultFileMaxAge
	}

	if rotationTime <= 0 {
		rotationTime = DefaultFileRotationTime
	}

	rl, err := rotatelogs.New(
		pattern,
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotationTime),
	)
	if err != nil {
		return nil, fmt.Errorf("open rotating log %q: %w", pattern, err)
	}

	return zapcore.AddSync(rl), nil
}
