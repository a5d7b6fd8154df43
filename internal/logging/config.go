package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Config selects the level, encoding and destination of a Logger. The
// zero value logs INFO and above as JSON to stderr.
type Config struct {
	Level  string // debug, info, warn, error or fatal
	Format string // json or text
	Output string // stdout, stderr or a file path opened for append
}

// NewLogger builds a Logger from cfg. A nil cfg behaves like the zero Config.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return New(parseLevel(cfg.Level), output).WithFormat(parseFormat(cfg.Format)), nil
}

func parseFormat(format string) Format {
	if strings.EqualFold(strings.TrimSpace(format), string(TextFormat)) {
		return TextFormat
	}
	return JSONFormat
}

// parseLevel falls back to INFO for unknown names.
func parseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log output: %w", err)
	}
	return f, nil
}
