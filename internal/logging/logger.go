// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging provides the application-wide logger. It wraps
// charmbracelet/log so call sites can use printf-style helpers while the
// output stays structured.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger. Callers should use the helper functions
// below unless they need structured key/value pairs.
var L = clog.NewWithOptions(os.Stderr, clog.Options{ReportTimestamp: true})

// Options configures the package-level logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json, logfmt
	Output io.Writer
}

// Setup replaces L according to opts. Unknown levels fall back to info and
// unknown formats to text.
func Setup(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level, err := clog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = clog.InfoLevel
	}
	formatter := clog.TextFormatter
	switch strings.ToLower(opts.Format) {
	case "json":
		formatter = clog.JSONFormatter
	case "logfmt":
		formatter = clog.LogfmtFormatter
	}
	L = clog.NewWithOptions(out, clog.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
	})
}

// With returns a child logger carrying the given key/value pairs.
func With(keyvals ...interface{}) *clog.Logger {
	return L.With(keyvals...)
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...interface{}) {
	L.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...interface{}) {
	L.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...interface{}) {
	L.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...interface{}) {
	L.Error(fmt.Sprintf(format, v...))
}
