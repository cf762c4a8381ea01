// Package controller serializes every access to a module through a single
// owner goroutine.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tr4cks/firmod/modules"
)

var ErrStopped = errors.New("controller stopped")

type Operation func(module modules.Module) error

type request struct {
	op   Operation
	done chan error
}

type Controller struct {
	module   modules.Module
	logger   zerolog.Logger
	requests chan request
	stopped  chan struct{}
}

// State is a point-in-time view of a module.
type State struct {
	Status     modules.Status `json:"status"`
	Parameters interface{}    `json:"parameters"`
}

func New(module modules.Module, logger zerolog.Logger) *Controller {
	return &Controller{
		module:   module,
		logger:   logger.With().Str("scope", "controller").Logger(),
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}
}

// Run executes submitted operations one at a time until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)
	c.logger.Debug().Msg("Controller loop started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Msg("Controller loop stopped")
			return
		case req := <-c.requests:
			req.done <- req.op(c.module)
		}
	}
}

// Do submits op to the owner loop and waits for its result.
func (c *Controller) Do(ctx context.Context, op Operation) error {
	req := request{op: op, done: make(chan error, 1)}

	select {
	case c.requests <- req:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) Init(ctx context.Context) (State, error) {
	return c.apply(ctx, func(module modules.Module) error {
		err := module.Init()
		if err != nil {
			return fmt.Errorf("error initializing module: %w", err)
		}
		return nil
	})
}

func (c *Controller) Configure(ctx context.Context, config map[string]interface{}) (State, error) {
	return c.apply(ctx, func(module modules.Module) error {
		return module.Configure(config)
	})
}

func (c *Controller) Update(ctx context.Context) (State, error) {
	return c.apply(ctx, func(module modules.Module) error {
		module.OnUpdate()
		return nil
	})
}

func (c *Controller) State(ctx context.Context) modules.Result[State] {
	state, err := c.apply(ctx, func(modules.Module) error { return nil })
	return modules.Result[State]{Value: state, Err: err}
}

// apply runs op and captures the resulting state inside the same turn of the
// owner loop.
func (c *Controller) apply(ctx context.Context, op Operation) (State, error) {
	var state State
	err := c.Do(ctx, func(module modules.Module) error {
		err := op(module)
		state = Snapshot(module)
		return err
	})
	if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return State{}, err
	}
	return state, err
}

func Snapshot(module modules.Module) State {
	return State{
		Status:     module.Status(),
		Parameters: module.Parameters(),
	}
}
