// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	Level string
	// File enables a rotating log file in addition to stderr.
	File string
	// NoColors disables ANSI colors on stderr.
	NoColors bool
}

// New creates a logger writing to stderr and, when opts.File is set, to a
// rotating file.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
	}
	logger.SetLevel(level)

	logger.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		FieldsOrder:     []string{"component", "class", "side", "status"},
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})
	logger.SetReportCaller(level >= logrus.DebugLevel)

	writers := []io.Writer{os.Stderr}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, nil
}

// Component returns a child logger tagged with the component name.
func Component(log logrus.FieldLogger, name string) logrus.FieldLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", name)
}
