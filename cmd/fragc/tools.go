// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/fragc"
	"github.com/gogpu/fragc/pass"
	"github.com/gogpu/fragc/settings"
)

func newDisCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "dis file.spv",
		Short: "Disassemble a SPIR-V binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := fragc.Disassemble(data)
			fmt.Fprint(cmd.OutOrStdout(), text)
			if err != nil {
				return err
			}
			if !check {
				return nil
			}
			failed := false
			for _, m := range pass.Validate(data) {
				if m.Severity == pass.SeverityError {
					failed = true
				}
				printWarning("Validate", m.String())
			}
			if failed {
				return pass.ErrValidation
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "validate", false, "also validate the module")
	return cmd
}

func newSettingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "settings [file]",
		Short: "Print the effective settings as TOML",
		Long: `Settings prints the built-in defaults, or the given settings file
merged over them, so the output can seed a project's settings.toml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settings.Default()
			if len(args) == 1 {
				var err error
				if s, err = settings.Load(args[0]); err != nil {
					return err
				}
			}
			data, err := s.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compiler version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fragc version %s\n", fragc.Version)
		},
	}
}
