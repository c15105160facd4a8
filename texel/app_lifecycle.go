// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/app_lifecycle.go
// Summary: Runs an app's Run loop beside the runner's UI goroutine.

package texel

import "sync"

// LocalAppLifecycle runs apps in-process. It spawns each app's Run loop in
// a goroutine and delegates Stop calls directly.
type LocalAppLifecycle struct {
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// StartApp launches the app's Run method asynchronously. done, if not
// nil, receives Run's result.
func (l *LocalAppLifecycle) StartApp(app App, done chan<- error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := app.Run()
		if err != nil {
			l.mu.Lock()
			l.errs = append(l.errs, err)
			l.mu.Unlock()
		}
		if done != nil {
			done <- err
		}
	}()
}

// StopApp forwards the stop request to the app implementation.
func (l *LocalAppLifecycle) StopApp(app App) {
	app.Stop()
}

// Wait blocks until all started apps have exited and returns the errors
// their Run loops reported.
func (l *LocalAppLifecycle) Wait() []error {
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}
