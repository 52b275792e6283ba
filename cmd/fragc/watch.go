// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gogpu/fragc/project"
)

// settle is how long a burst of file events must be quiet before a
// rebuild starts.
const settle = 200 * time.Millisecond

func newWatchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [project dir]",
		Short: "Rebuild a project whenever its sources, settings or manifests change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return watch(cmd.Context(), flags, dir)
		},
	}
}

func watch(ctx context.Context, flags *globalFlags, dir string) error {
	log := flags.logger()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	graph, err := project.LoadGraph(dir)
	if err != nil {
		return err
	}
	if err := addDirs(w, graph); err != nil {
		return err
	}
	rebuild := func() {
		if err := runBuild(ctx, flags, false, dir); err != nil {
			printError(err)
		}
	}
	rebuild()
	printSuccess("Watching", graph.Root.Dir)

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.Add(event.Name)
				}
			}
			if !relevant(graph, event) {
				continue
			}
			log.Debug("change", "file", event.Name, "op", event.Op.String())
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			printWarning("Watch", err.Error())
		case <-timer.C:
			// Manifests may have changed the graph.
			if g, err := project.LoadGraph(dir); err != nil {
				printError(err)
			} else {
				graph = g
				if err := addDirs(w, graph); err != nil {
					printWarning("Watch", err.Error())
				}
			}
			rebuild()
		}
	}
}

// addDirs watches every directory of every project, skipping targets and
// hidden directories.
func addDirs(w *fsnotify.Watcher, g *project.Graph) error {
	for _, p := range g.Projects {
		err := filepath.WalkDir(p.Dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			if path == p.Target || path != p.Dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return w.Add(path)
		})
		if err != nil {
			return err
		}
		if p.SettingsPath != "" {
			if err := w.Add(filepath.Dir(p.SettingsPath)); err != nil {
				return err
			}
		}
	}
	return nil
}

// relevant reports whether event touches a source, manifest or settings
// file of the graph.
func relevant(g *project.Graph, event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, p := range g.Projects {
		switch {
		case strings.HasPrefix(name, p.Target+string(filepath.Separator)):
			return false
		case name == filepath.Join(p.Dir, project.ManifestName),
			name == p.SettingsPath,
			p.Matches(name):
			return true
		}
	}
	return false
}
