// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command fragc is the fragment shader compiler CLI.
//
// Usage:
//
//	fragc build [project dirs...]          # build fragc.toml projects
//	fragc watch [project dir]              # rebuild on change
//	fragc compile -o out shader.yaml ...   # compile syntax documents
//	fragc dis shader.spv                   # disassemble SPIR-V
//	fragc settings [file]                  # print effective settings
//	fragc version
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	verbose bool
	quiet   bool
}

func (g *globalFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case g.verbose:
		level = slog.LevelDebug
	case g.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "fragc",
		Short:         "Compile fragment shader libraries to SPIR-V and GLSL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every compilation step")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "only log errors")
	root.AddCommand(
		newBuildCommand(flags),
		newWatchCommand(flags),
		newCompileCommand(flags),
		newDisCommand(),
		newSettingsCommand(),
		newVersionCommand(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}
