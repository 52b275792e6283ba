// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/fragc"
	"github.com/gogpu/fragc/glsl"
	"github.com/gogpu/fragc/pass"
	"github.com/gogpu/fragc/project"
	"github.com/gogpu/fragc/settings"
	"github.com/gogpu/fragc/spirv"
)

func newBuildCommand(flags *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "build [project dirs...]",
		Short: "Build fragc.toml projects and their dependencies",
		Long: `Build loads the fragc.toml manifest in each directory (the current
directory by default), orders its dependencies and writes every
requested output to the project's target directory. Independent
projects are built concurrently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runBuild(cmd.Context(), flags, dryRun, args...)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "compile without writing files")
	return cmd
}

func runBuild(ctx context.Context, flags *globalFlags, dryRun bool, dirs ...string) error {
	start := time.Now()
	b := &project.Builder{Logger: flags.logger(), DryRun: dryRun}
	results, err := project.CompileAll(ctx, b, dirs...)
	if err != nil {
		return err
	}
	for _, r := range results {
		msg := fmt.Sprintf("%s: %d stages, %d GLSL shaders", r.Project.Name, len(r.Output.Stages), len(r.Output.GLSL))
		if !dryRun {
			msg += fmt.Sprintf(", %d files in %s", len(r.Files), r.Project.Target)
		}
		printSuccess("Built", msg)
	}
	printSuccess("Done", fmt.Sprintf("%d projects in %s", len(results), time.Since(start).Round(time.Millisecond)))
	return nil
}

func newCompileCommand(flags *globalFlags) *cobra.Command {
	var (
		out          string
		settingsPath string
		noGLSL       bool
		optimize     bool
		validate     bool
		debug        bool
		glslVersion  string
		spirvVersion string
	)
	cmd := &cobra.Command{
		Use:   "compile documents...",
		Short: "Compile syntax documents without a project manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := fragc.DefaultOptions()
			opts.Logger = flags.logger()
			opts.GLSL = !noGLSL
			opts.SPIRV.Debug = debug
			if spirvVersion != "" {
				v, err := spirv.ParseVersion(spirvVersion)
				if err != nil {
					return err
				}
				opts.SPIRV.Version = v
			}
			if settingsPath != "" {
				s, err := settings.Load(settingsPath)
				if err != nil {
					return err
				}
				opts.Settings = s
			}
			if glslVersion != "" {
				if _, err := glsl.ParseVersion(glslVersion); err != nil {
					return err
				}
				if opts.Settings == nil {
					opts.Settings = settings.Default()
				}
				opts.Settings.GLSLVersions = []string{glslVersion}
			}
			if validate {
				opts.Passes = append(opts.Passes, &pass.Validator{})
			}
			if optimize {
				opts.Passes = append(opts.Passes, &pass.Optimizer{})
			}
			opts.Passes = append(opts.Passes, &pass.FileWriter{Dir: out, Reflection: true})

			src, err := fragc.Load(args...)
			if err != nil {
				return err
			}
			result, err := fragc.Compile(src, nil, opts)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			for _, s := range result.GLSL {
				if err := os.WriteFile(filepath.Join(out, s.FileName()), []byte(s.Source), 0o644); err != nil {
					return err
				}
			}
			if len(result.Stages) == 0 {
				printWarning("Warning", "no entry point types in "+src.Name)
			}
			for _, s := range result.Stages {
				printSuccess("Compiled", fmt.Sprintf("%s (%d bytes)", s.Name(), len(s.Binary)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", ".", "output directory")
	cmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "settings TOML file")
	cmd.Flags().BoolVar(&noGLSL, "no-glsl", false, "skip the GLSL backend")
	cmd.Flags().StringVar(&glslVersion, "glsl-version", "", "emit only this GLSL version")
	cmd.Flags().StringVar(&spirvVersion, "spirv-version", "", "target SPIR-V version (default 1.3)")
	cmd.Flags().BoolVarP(&optimize, "optimize", "O", false, "strip debug names and duplicate decorations")
	cmd.Flags().BoolVar(&validate, "validate", true, "validate every binary")
	cmd.Flags().BoolVarP(&debug, "debug", "g", true, "emit debug names")
	return cmd
}
