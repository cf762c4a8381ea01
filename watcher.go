package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/tr4cks/firmod/controller"
)

// reloadParameters feeds the module section of the configuration file to the
// module and notifies it of the update.
func reloadParameters(ctx context.Context, filePath string, ctrl *controller.Controller) (controller.State, error) {
	config, err := loadConfig(filePath)
	if err != nil {
		return controller.State{}, err
	}
	_, err = ctrl.Configure(ctx, config.Module)
	if err != nil {
		return controller.State{}, fmt.Errorf("error configuring module: %w", err)
	}
	return ctrl.Update(ctx)
}

// watchConfigFile reloads module parameters each time the file is written.
// The parent directory is watched so that editors replacing the file are seen.
func watchConfigFile(ctx context.Context, filePath string, ctrl *controller.Controller, logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating file watcher: %w", err)
	}
	defer watcher.Close()

	filePath = filepath.Clean(filePath)
	err = watcher.Add(filepath.Dir(filePath))
	if err != nil {
		return fmt.Errorf("error watching %q: %w", filepath.Dir(filePath), err)
	}
	logger.Info().Str("file", filePath).Msg("Watching configuration file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filePath || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			state, err := reloadParameters(ctx, filePath, ctrl)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to reload module parameters")
				continue
			}
			logger.Info().Stringer("status", state.Status).Msg("Module parameters reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("File watcher error")
		}
	}
}
