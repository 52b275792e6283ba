// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pterm/pterm"

	"github.com/gogpu/fragc/diag"
)

var (
	successColorFG = pterm.FgLightGreen
	successStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	warnColorFG    = pterm.FgYellow
	warnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	errorColorFG   = pterm.FgRed
	errorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
)

func printSuccess(tag, msg string) {
	successStyleBG.Print(tag)
	successColorFG.Println(" " + msg)
}

func printWarning(tag, msg string) {
	warnStyleBG.Print(tag)
	warnColorFG.Println(" " + msg)
}

// printError prints err, expanding accumulated diagnostics one by one.
func printError(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		prefix := strings.TrimSuffix(err.Error(), merr.Error())
		if prefix = strings.TrimSuffix(prefix, ": "); prefix != "" {
			errorStyleBG.Print("Error")
			errorColorFG.Println(" " + prefix)
		}
		for _, e := range merr.Errors {
			printError(e)
		}
		return
	}
	var d *diag.Error
	if errors.As(err, &d) && err == error(d) {
		printDiagnostic(d)
		return
	}
	errorStyleBG.Print("Error")
	errorColorFG.Println(" " + err.Error())
}

// printDiagnostic prints a banner naming the kind and file, then the
// message with its source line.
func printDiagnostic(d *diag.Error) {
	fmt.Print("\n-- ")
	banner := d.Kind.String() + " Error"
	errorStyleBG.Print(banner)
	fmt.Print(" ")

	file := "<input>"
	if d.Location.File != "" {
		file = filepath.Base(d.Location.File)
	}
	width := min(pterm.GetTerminalWidth()/2, 50)
	dashes := max(width-len(file)-len(banner)-1, 2)
	fmt.Print(strings.Repeat("-", dashes) + " ")
	successColorFG.Println(file)
	fmt.Println(d.FormatWithContext())
}
