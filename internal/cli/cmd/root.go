/*
Copyright © 2025 SUSE LLC
SPDX-License-Identifier: Apache-2.0

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

package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/projectbuddy/installer-core/pkg/log"
	"github.com/projectbuddy/installer-core/pkg/sys"
)

const Usage = "Install, update and uninstall the project component framework"

// RootFlags carries the global flags every command shares; they only
// shape the logger and are resolved once in Setup, before any command's
// own flags are considered.
type RootFlags struct {
	Debug   bool
	Quiet   bool
	NoColor bool
	LogFile string
}

var RootArgs RootFlags

// logFile stays open across the whole run; Teardown closes it.
var logFile *os.File

func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Log at debug level",
			Destination: &RootArgs.Debug,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Aliases:     []string{"q"},
			Usage:       "Suppress all log output (operation results still print)",
			Destination: &RootArgs.Quiet,
		},
		&cli.BoolFlag{
			Name:        "no-color",
			Usage:       "Disable colored log output",
			EnvVars:     []string{"CLAUDE_BUDDY_NO_COLOR"},
			Destination: &RootArgs.NoColor,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Append logs to a file instead of stderr",
			Destination: &RootArgs.LogFile,
		},
	}
}

// Setup builds the sys.System every action recovers from the app
// metadata, with its logger already shaped by the global flags.
func Setup(ctx *cli.Context) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}

	s, err := sys.NewSystem(sys.WithLogger(logger))
	if err != nil {
		return err
	}

	if ctx.App.Metadata == nil {
		ctx.App.Metadata = map[string]any{}
	}
	ctx.App.Metadata["system"] = s
	return nil
}

func Teardown(*cli.Context) error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

func buildLogger() (log.Logger, error) {
	var opts []log.Option
	if RootArgs.Quiet {
		opts = append(opts, log.WithDiscardAll())
	}
	if RootArgs.NoColor {
		opts = append(opts, log.WithNoColor())
	}
	if RootArgs.Debug {
		opts = append(opts, log.WithLevel("debug"))
	}

	logger := log.New(opts...)

	if RootArgs.LogFile != "" && !RootArgs.Quiet {
		f, err := os.OpenFile(RootArgs.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file '%s': %w", RootArgs.LogFile, err)
		}
		logFile = f
		logger.SetOutput(f)
	}

	return logger, nil
}
