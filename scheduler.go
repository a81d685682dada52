package kat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// CheckScheduler is responsible for scheduling periodic check runs.
type CheckScheduler interface {
	Start(ctx context.Context) error
	Stop() error
	RegisterCallback(func() error)
	WaitForShutdown(ctx context.Context) error
	Stopped() bool
}

// DefaultCheckScheduler implements the CheckScheduler interface.
type DefaultCheckScheduler struct {
	interval time.Duration
	runOnce  bool
	logger   *zap.Logger
	callback func() error

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewDefaultCheckScheduler creates a new DefaultCheckScheduler.
func NewDefaultCheckScheduler(interval time.Duration, runOnce bool, logger *zap.Logger) *DefaultCheckScheduler {
	return &DefaultCheckScheduler{
		interval: interval,
		runOnce:  runOnce,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// RegisterCallback registers the callback to be called when checks should run.
func (s *DefaultCheckScheduler) RegisterCallback(callback func() error) {
	s.callback = callback
}

// Start starts the scheduler.
func (s *DefaultCheckScheduler) Start(ctx context.Context) error {
	if s.callback == nil {
		return errors.New("callback must be registered before starting scheduler")
	}

	s.done = make(chan struct{})
	s.running.Store(true)

	if s.runOnce {
		s.logger.Info("Starting scheduler in run-once mode")
		return s.callback()
	}

	s.logger.Info("Starting scheduler in continuous mode", zap.Duration("interval", s.interval))

	// Run checks immediately on startup
	err := s.callback()
	if err != nil {
		return err
	}

	// Start a goroutine for periodic check execution
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Debug("Starting periodic check runner goroutine", zap.Duration("interval", s.interval))

		for {
			select {
			case <-time.After(s.interval):
				// Check if we should still be running
				if !s.running.Load() {
					s.logger.Debug("Service stopped, exiting periodic check runner")
					return
				}

				s.logger.Info("Running periodic checks")
				if err := s.callback(); err != nil {
					s.logger.Error("Error running periodic checks", zap.Error(err))
				}
				s.logger.Info("Check run interval", zap.Duration("interval", s.interval))

			case <-s.done:
				s.logger.Debug("Done signal received, stopping periodic check runner")
				return

			case <-ctx.Done():
				s.logger.Debug("Context canceled, stopping periodic check runner")
				s.running.Store(false)
				return
			}
		}
	}()

	return nil
}

// Stop stops the scheduler.
func (s *DefaultCheckScheduler) Stop() error {
	// Check if we're already stopped
	if !s.running.Load() {
		s.logger.Debug("Scheduler already stopped, nothing to do")
		return nil
	}

	// Update running state first to prevent new check runs
	s.running.Store(false)

	// Signal goroutines to exit
	s.logger.Debug("Sending done signal to goroutines")
	close(s.done)

	return nil
}

// Stopped returns true if the scheduler is stopped.
func (s *DefaultCheckScheduler) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (s *DefaultCheckScheduler) WaitForShutdown(ctx context.Context) error {
	s.logger.Debug("Waiting for all goroutines to terminate")

	// Create a channel that will be closed when the WaitGroup is done
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	// Wait for either WaitGroup completion or context expiration
	select {
	case <-done:
		s.logger.Debug("All goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for goroutines to terminate", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
