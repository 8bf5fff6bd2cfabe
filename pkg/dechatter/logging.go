package dechatter

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const (
	LogLevelEnv = "LOG_LEVEL"
	LogStyleEnv = "LOG_STYLE"

	StyleAuto   = "auto"
	StyleAlways = "always"
	StyleNever  = "never"
)

// NewLogger returns a text logger. level is one of trace, debug, info,
// warn or error. style is auto, always or never and controls colors.
func NewLogger(out io.Writer, level, style string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	switch style {
	case StyleAuto, "":
	case StyleAlways:
		formatter.ForceColors = true
	case StyleNever:
		formatter.DisableColors = true
	default:
		return nil, fmt.Errorf("invalid log style %q, expected %s, %s or %s", style, StyleAuto, StyleAlways, StyleNever)
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(formatter)
	return log, nil
}

// NewLoggerFromEnv reads LOG_LEVEL (default info) and LOG_STYLE (default auto).
func NewLoggerFromEnv(out io.Writer) (*logrus.Logger, error) {
	return NewLogger(out, getenv(LogLevelEnv, "info"), getenv(LogStyleEnv, StyleAuto))
}

// UseColor reports whether output to f should be colored, following LOG_STYLE.
func UseColor(f *os.File) bool {
	switch getenv(LogStyleEnv, StyleAuto) {
	case StyleAlways:
		return true
	case StyleNever:
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
