/*
Copyright © 2022 - 2025 SUSE LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log provides the structured logging capability every core
// package receives through the sys.System bundle: a narrow interface over
// logrus, so tests can silence it and the CLI can retarget or re-level it
// without the core packages knowing what backs it.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging capability the core consumes. It exposes only the
// printf-style methods and knobs the installer core actually uses; levels
// are addressed by name ("debug", "info", "warn", "error") since that is
// how they arrive from flags and configuration.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)

	SetLevel(name string)
	SetOutput(w io.Writer)
}

type Option func(l *logrus.Logger)

// WithDiscardAll silences the logger entirely, used by tests and --quiet.
func WithDiscardAll() Option {
	return func(l *logrus.Logger) {
		l.SetOutput(io.Discard)
	}
}

// WithNoColor disables ANSI colors in the text output, for the --no-color
// flag and the CLAUDE_BUDDY_NO_COLOR environment variable.
func WithNoColor() Option {
	return func(l *logrus.Logger) {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
}

// WithLevel sets the initial level by name. Unknown names keep the
// default info level rather than erroring, matching the config loader's
// validated enum.
func WithLevel(name string) Option {
	return func(l *logrus.Logger) {
		if lvl, err := logrus.ParseLevel(name); err == nil {
			l.SetLevel(lvl)
		}
	}
}

// New builds a Logger at info level with full timestamps, the default
// shape for operation logs where the timing of each action matters.
func New(opts ...Option) Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	for _, o := range opts {
		o(logger)
	}
	return &logrusWrapper{Logger: logger}
}

type logrusWrapper struct {
	*logrus.Logger
}

var _ Logger = (*logrusWrapper)(nil)

func (w *logrusWrapper) Debug(format string, args ...any) {
	w.Logger.Debugf(format, args...)
}

func (w *logrusWrapper) Info(format string, args ...any) {
	w.Logger.Infof(format, args...)
}

func (w *logrusWrapper) Warn(format string, args ...any) {
	w.Logger.Warnf(format, args...)
}

func (w *logrusWrapper) Error(format string, args ...any) {
	w.Logger.Errorf(format, args...)
}

func (w *logrusWrapper) SetLevel(name string) {
	if lvl, err := logrus.ParseLevel(name); err == nil {
		w.Logger.SetLevel(lvl)
	}
}
