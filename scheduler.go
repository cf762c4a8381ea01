package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/tr4cks/firmod/controller"
)

// newUpdateScheduler returns a cron scheduler firing module update
// notifications on the given cron schedule. The caller starts and stops it.
func newUpdateScheduler(ctx context.Context, spec string, ctrl *controller.Controller, logger zerolog.Logger) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		state, err := ctrl.Update(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Scheduled module update failed")
			return
		}
		logger.Debug().Stringer("status", state.Status).Msg("Scheduled module update")
	})
	if err != nil {
		return nil, fmt.Errorf("error scheduling module updates %q: %w", spec, err)
	}
	return scheduler, nil
}

func runUpdateScheduler(ctx context.Context, spec string, ctrl *controller.Controller, logger zerolog.Logger) error {
	scheduler, err := newUpdateScheduler(ctx, spec, ctrl, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	logger.Info().Str("schedule", spec).Msg("Update scheduler started")

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info().Msg("Update scheduler stopped")
	return nil
}
