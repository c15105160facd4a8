// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/lifecycle.go
// Summary: Lifecycle connects a view to a live source only while visible.
//
// Architecture:
//
//	            BecomesVisible (static)
//	  Hidden ------------------------------> VisibleDisconnected
//	    |  ^                                        |
//	    |  |  BecomesHidden                         |
//	    |  +----------------------------------------+
//	    |  |
//	    |  |  BecomesHidden (async disconnect)
//	    v  |
//	  VisibleConnected <-- BecomesVisible (live, async connect)
//
//	Any state --Dispose--> Disposed (terminal)
//
//	Connect and disconnect run on the scheduler's background worker; their
//	outcome is posted back to the UI thread. Repeated visible/hidden calls
//	are no-ops, so connects and disconnects stay balanced.

package memory

import (
	"context"
	"log"
	"time"
)

// LifecycleState is the connection state of a view.
type LifecycleState int

const (
	Hidden LifecycleState = iota
	VisibleDisconnected
	VisibleConnected
	Disposed
)

func (s LifecycleState) String() string {
	switch s {
	case Hidden:
		return "Hidden"
	case VisibleDisconnected:
		return "VisibleDisconnected"
	case VisibleConnected:
		return "VisibleConnected"
	case Disposed:
		return "Disposed"
	}
	return "Unknown"
}

// IsVisible reports whether the state is one of the visible states.
func (s LifecycleState) IsVisible() bool {
	return s == VisibleDisconnected || s == VisibleConnected
}

// lifecycleObserver is notified of transitions on the UI thread.
type lifecycleObserver interface {
	lifecycleVisible()
	lifecycleConnected()
	lifecycleHidden()
	lifecycleConnectFailed(err error)
	lifecycleDisposed()
}

// Lifecycle is the visibility/connection state machine of one view.
type Lifecycle struct {
	source   DataSource
	listener SourceListener
	sched    Scheduler
	observer lifecycleObserver

	ctx    context.Context
	cancel context.CancelFunc

	connectTimeout time.Duration

	state     LifecycleState
	connected bool

	connects    int
	disconnects int
}

// NewLifecycle creates a lifecycle in the Hidden state. listener receives
// change notifications from live sources while connected.
func NewLifecycle(source DataSource, listener SourceListener, sched Scheduler) *Lifecycle {
	if sched == nil {
		sched = InlineScheduler{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifecycle{
		source:   source,
		listener: listener,
		sched:    sched,
		ctx:      ctx,
		cancel:   cancel,
		state:    Hidden,
	}
}

func (l *Lifecycle) setObserver(o lifecycleObserver) {
	l.observer = o
}

// SetConnectTimeout bounds each connect request. Zero means no timeout.
func (l *Lifecycle) SetConnectTimeout(d time.Duration) {
	l.connectTimeout = d
}

// State returns the current state.
func (l *Lifecycle) State() LifecycleState { return l.state }

// Connects returns how many connect requests were issued.
func (l *Lifecycle) Connects() int { return l.connects }

// Disconnects returns how many disconnect requests were issued.
func (l *Lifecycle) Disconnects() int { return l.disconnects }

// BecomesVisible moves a hidden view to a visible state. Live sources get
// an asynchronous connect; the view keeps rendering its last snapshot
// until the connection completes.
func (l *Lifecycle) BecomesVisible() error {
	switch {
	case l.state == Disposed:
		return ErrDisposed
	case l.state.IsVisible():
		return nil
	}

	conn, live := l.source.(Connector)
	if !live {
		l.state = VisibleDisconnected
	} else {
		l.state = VisibleConnected
		l.connected = true
		l.connects++
	}
	if l.observer != nil {
		l.observer.lifecycleVisible()
	}
	if live {
		l.issueConnect(conn)
	}
	return nil
}

func (l *Lifecycle) issueConnect(conn Connector) {
	ctx, listener, sched, timeout := l.ctx, l.listener, l.sched, l.connectTimeout
	gen := l.connects
	sched.Background(func() {
		cctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		err := conn.Connect(cctx, listener)
		sched.Post(func() { l.connectDone(gen, err) })
	})
}

func (l *Lifecycle) connectDone(gen int, err error) {
	// A newer connect, a hide or a dispose has already moved on.
	current := gen == l.connects && l.state == VisibleConnected
	if err == nil {
		debugLog.Printf("%s: connected", l.source.ID())
		if current && l.observer != nil {
			l.observer.lifecycleConnected()
		}
		return
	}
	log.Printf("Memview: %s: connect failed: %v", l.source.ID(), err)
	if !current {
		return
	}
	l.connected = false
	l.state = VisibleDisconnected
	if l.observer != nil {
		l.observer.lifecycleConnectFailed(err)
	}
}

// BecomesHidden moves a visible view to Hidden, disconnecting live sources.
func (l *Lifecycle) BecomesHidden() error {
	switch {
	case l.state == Disposed:
		return ErrDisposed
	case !l.state.IsVisible():
		return nil
	}
	l.disconnect(l.ctx)
	l.state = Hidden
	if l.observer != nil {
		l.observer.lifecycleHidden()
	}
	return nil
}

func (l *Lifecycle) disconnect(ctx context.Context) {
	if !l.connected {
		return
	}
	l.connected = false
	l.issueDisconnect(ctx)
}

func (l *Lifecycle) issueDisconnect(ctx context.Context) {
	conn, live := l.source.(Connector)
	if !live {
		return
	}
	l.disconnects++
	listener, id := l.listener, l.source.ID()
	l.sched.Background(func() {
		if err := conn.Disconnect(ctx, listener); err != nil {
			log.Printf("Memview: %s: disconnect failed: %v", id, err)
		}
	})
}

// Dispose moves to the terminal Disposed state. Live sources receive exactly
// one disconnect whatever the current state, so a source that registered the
// listener during a failed or superseded connect is still released.
// In-flight background work is cancelled.
func (l *Lifecycle) Dispose() {
	if l.state == Disposed {
		return
	}
	l.connected = false
	// The disconnect must outlive the cancelled lifecycle context.
	l.issueDisconnect(context.Background())
	l.cancel()
	l.state = Disposed
	if l.observer != nil {
		l.observer.lifecycleDisposed()
	}
}
