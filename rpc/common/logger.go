package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

// packageLoggers lists the loggers of all packages of this module
var packageLoggers = []string{
	"rpc",
	"transport/rpc",
	"transport/http",
	"pool",
	"store",
	"client",
}

// levelNames maps the accepted --log-level values to dragonboat levels
var levelNames = map[string]logger.LogLevel{
	"debug":   logger.DEBUG,
	"info":    logger.INFO,
	"warn":    logger.WARNING,
	"warning": logger.WARNING,
	"error":   logger.ERROR,
}

var factoryOnce sync.Once

// --------------------------------------------------------------------------
// Line Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// lineLogger writes one "LEVEL | package | message" line per entry
type lineLogger struct {
	pkg   string
	level logger.LogLevel
	out   *log.Logger
}

func (l *lineLogger) SetLevel(level logger.LogLevel) { l.level = level }

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.write(logger.DEBUG, "DEBUG", format, args)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.write(logger.INFO, "INFO", format, args)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, "WARN", format, args)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.write(logger.ERROR, "ERROR", format, args)
}

// Panicf logs regardless of the level and panics with the message
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("%-5s | %-15s | %s", "PANIC", l.pkg, msg)
	panic(msg)
}

func (l *lineLogger) write(level logger.LogLevel, tag, format string, args []interface{}) {
	if l.level < level {
		return
	}
	l.out.Printf("%-5s | %-15s | %s", tag, l.pkg, fmt.Sprintf(format, args...))
}

// CreateLogger is the dragonboat logger.Factory of rKV, it logs to stdout
func CreateLogger(pkgName string) logger.ILogger {
	return newLineLogger(pkgName, os.Stdout)
}

func newLineLogger(pkg string, w io.Writer) *lineLogger {
	return &lineLogger{
		pkg:   pkg,
		level: logger.INFO,
		out:   log.New(w, "", log.Ldate|log.Ltime),
	}
}

// parseLogLevel converts a --log-level value
func parseLogLevel(level string) (logger.LogLevel, error) {
	logLevel, ok := levelNames[strings.ToLower(level)]
	if !ok {
		return logger.INFO, fmt.Errorf("invalid log level: %q. must be one of debug, info, warn, error", level)
	}
	return logLevel, nil
}

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// InitLoggers sets the level of all package loggers. The first call also
// installs CreateLogger as the logger factory; dragonboat allows that only once.
func InitLoggers(level string) error {
	logLevel, err := parseLogLevel(level)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range packageLoggers {
		logger.GetLogger(name).SetLevel(logLevel)
	}
	return nil
}
