// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package runner runs the logger components as one task group.
//
// The first task to fail tears the whole group down. The failure is then
// captured as a *Fault and, when a network path exists, shown on an
// emergency page until the device is reset.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/GermanBionicSystems/co2log/emergency"
)

// Task is a named long running component. Run should only return on
// failure or once ctx is done.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Fault is the failure that tore the task group down.
type Fault struct {
	Task string
	Err  error
	Time time.Time
}

func (f *Fault) Error() string {
	return fmt.Sprintf("runner: task %s failed: %v", f.Task, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// ErrStopped is returned by a task that stopped without error while the
// group was still running.
var ErrStopped = errors.New("runner: task stopped unexpectedly")

// Emergency configures the failure page.
type Emergency struct {
	Addr   string
	Device string
	// Reset reboots the device. Defaults to emergency.Reboot.
	Reset func() error
}

// Runner runs tasks as a group.
type Runner struct {
	tasks []Task
	// keep are restarted alongside the failure page, e.g. the wifi client.
	keep      []Task
	emergency *Emergency
}

// New returns a Runner. A nil e makes Run return the fault right away.
func New(e *Emergency) *Runner {
	return &Runner{emergency: e}
}

// Go adds tasks to the group.
func (r *Runner) Go(tasks ...Task) *Runner {
	r.tasks = append(r.tasks, tasks...)
	return r
}

// Keep adds tasks to the group that also run while the failure page is
// served.
func (r *Runner) Keep(tasks ...Task) *Runner {
	r.keep = append(r.keep, tasks...)
	return r
}

// Run runs all tasks until one fails or ctx is done. On failure the *Fault
// is logged, then either returned or served on the failure page until ctx
// is done.
func (r *Runner) Run(ctx context.Context) error {
	glog.Info("--- co2log start ---")
	f := r.runGroup(ctx)
	glog.Info("--- co2log stop ---")
	if f == nil {
		return ctx.Err()
	}
	glog.Errorf("one of the main components failed: %v", f)
	if r.emergency == nil {
		return f
	}
	return r.serve(ctx, f)
}

func (r *Runner) runGroup(ctx context.Context) *Fault {
	g, gctx := errgroup.WithContext(ctx)
	faults := make(chan *Fault, len(r.tasks)+len(r.keep))
	for _, t := range append(append([]Task(nil), r.keep...), r.tasks...) {
		g.Go(func() error {
			glog.V(4).Infof("task[%s] started", t.Name)
			err := t.Run(gctx)
			glog.V(4).Infof("task[%s] stopped: %v", t.Name, err)
			if ctx.Err() != nil || gctx.Err() != nil && isCanceled(err) {
				return nil
			}
			if err == nil {
				err = ErrStopped
			}
			faults <- &Fault{Task: t.Name, Err: err, Time: time.Now()}
			return err
		})
	}
	_ = g.Wait()
	select {
	case f := <-faults:
		return f
	default:
		return nil
	}
}

func (r *Runner) serve(ctx context.Context, f *Fault) error {
	reset := r.emergency.Reset
	if reset == nil {
		reset = emergency.Reboot
	}
	opts := &emergency.Opts{
		Text:   f.Error(),
		Time:   f.Time,
		Device: r.emergency.Device,
		Reset:  reset,
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range r.keep {
		g.Go(func() error {
			glog.Warningf("restarting task %s for the failure page", t.Name)
			for {
				err := t.Run(gctx)
				if gctx.Err() != nil {
					return nil
				}
				glog.Warningf("task %s: %v", t.Name, err)
				if err := sleep(gctx, time.Second); err != nil {
					return nil
				}
			}
		})
	}
	g.Go(func() error {
		return emergency.ListenAndServe(gctx, r.emergency.Addr, opts)
	})
	if err := g.Wait(); err != nil && !isCanceled(err) {
		return errors.Join(f, fmt.Errorf("runner: failure page: %w", err))
	}
	return f
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
