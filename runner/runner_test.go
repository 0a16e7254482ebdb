// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func blocking(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func failing(err error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := sleep(ctx, 10*time.Millisecond); err != nil {
			return err
		}
		return err
	}
}

func TestRunFault(t *testing.T) {
	want := errors.New("bus error")
	start := time.Now()
	err := New(nil).Go(
		Task{Name: "screen", Run: blocking},
		Task{Name: "sensor", Run: failing(want)},
	).Run(context.Background())

	var f *Fault
	require.ErrorAs(t, err, &f)
	require.ErrorIs(t, err, want)
	require.Equal(t, "sensor", f.Task)
	require.False(t, f.Time.Before(start))
	require.Equal(t, "runner: task sensor failed: bus error", f.Error())
}

func TestRunStopped(t *testing.T) {
	err := New(nil).Go(
		Task{Name: "idle", Run: blocking},
		Task{Name: "quitter", Run: func(context.Context) error { return nil }},
	).Run(context.Background())
	require.ErrorIs(t, err, ErrStopped)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := New(nil).Go(Task{Name: "a", Run: blocking}, Task{Name: "b", Run: blocking}).Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	var f *Fault
	require.False(t, errors.As(err, &f))
}

func TestRunEmergency(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var runs atomic.Int32
	keep := Task{Name: "wifi", Run: func(ctx context.Context) error {
		runs.Add(1)
		return blocking(ctx)
	}}
	want := errors.New("panel timeout")
	r := New(&Emergency{Addr: "127.0.0.1:0", Reset: func() error { return nil }}).
		Keep(keep).
		Go(Task{Name: "screen", Run: failing(want)})

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	// Once in the group, once more next to the failure page.
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 5*time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("returned early: %v", err)
	default:
	}
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, want)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
