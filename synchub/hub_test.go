// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: synchub/hub_test.go
// Summary: Exercises publish fan-out, provider rules and re-entrant delivery.

package synchub

import (
	"errors"
	"testing"
)

type change struct {
	prop  Property
	value any
}

type recorder struct {
	changes []change
	err     error
	onEvent func(prop Property, value any)
}

func (r *recorder) PropertyChanged(_ string, prop Property, value any) error {
	r.changes = append(r.changes, change{prop, value})
	if r.onEvent != nil {
		r.onEvent(prop, value)
	}
	return r.err
}

func TestPublishSkipsPublisher(t *testing.T) {
	h := New()
	a, b := &recorder{}, &recorder{}
	h.Subscribe("blk", nil, a)
	h.Subscribe("blk", nil, b)
	h.Subscribe("other", nil, &recorder{})

	h.Publish("blk", SelectedAddress, uint64(0x40), a)
	if len(a.changes) != 0 {
		t.Fatal("publisher was notified of its own change")
	}
	if len(b.changes) != 1 || b.changes[0].value != any(uint64(0x40)) {
		t.Fatalf("peer changes = %v", b.changes)
	}
	if v, ok := h.CurrentValue("blk", SelectedAddress); !ok || v != any(uint64(0x40)) {
		t.Fatalf("current value = %v, %v", v, ok)
	}
	if _, ok := h.CurrentValue("other", SelectedAddress); ok {
		t.Fatal("value leaked to another source")
	}
}

func TestSubscribeFiltersProperties(t *testing.T) {
	h := New()
	sel := &recorder{}
	h.Subscribe("blk", []Property{SelectedAddress}, sel)
	h.Publish("blk", ColumnSize, 4, nil)
	h.Publish("blk", SelectedAddress, uint64(1), nil)
	if len(sel.changes) != 1 || sel.changes[0].prop != SelectedAddress {
		t.Fatalf("changes = %v", sel.changes)
	}

	// Subscribing again replaces the filter.
	h.Subscribe("blk", []Property{ColumnSize}, sel)
	if h.Subscribers("blk") != 1 {
		t.Fatalf("subscribers = %d", h.Subscribers("blk"))
	}
	h.Publish("blk", SelectedAddress, uint64(2), nil)
	h.Publish("blk", ColumnSize, 8, nil)
	if len(sel.changes) != 2 || sel.changes[1].value != any(8) {
		t.Fatalf("changes = %v", sel.changes)
	}
}

func TestProviderRules(t *testing.T) {
	h := New()
	a, b := &recorder{}, &recorder{}
	h.Subscribe("blk", nil, a)
	h.Subscribe("blk", nil, b)
	if !h.MayPublish("blk", a) || !h.MayPublish("blk", b) {
		t.Fatal("without a provider every view may publish")
	}
	h.SetActiveProvider("blk", a)
	if !h.MayPublish("blk", a) || h.MayPublish("blk", b) {
		t.Fatal("only the provider may publish")
	}
	if len(b.changes) != 0 {
		t.Fatal("setting the provider republished values")
	}

	h.Unsubscribe("blk", a)
	if _, ok := h.ActiveProvider("blk"); ok {
		t.Fatal("unsubscribed provider still active")
	}
	h.SetActiveProvider("blk", b)
	h.SetActiveProvider("blk", nil)
	if _, ok := h.ActiveProvider("blk"); ok {
		t.Fatal("nil provider not cleared")
	}
	h.Unsubscribe("blk", b)
	if h.Subscribers("blk") != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers("blk"))
	}
}

func TestListenerErrorDoesNotStopDelivery(t *testing.T) {
	h := New()
	bad := &recorder{err: errors.New("rejected")}
	good := &recorder{}
	h.Subscribe("blk", nil, bad)
	h.Subscribe("blk", nil, good)
	h.Publish("blk", TopAddress, uint64(0x100), nil)
	if len(bad.changes) != 1 || len(good.changes) != 1 {
		t.Fatalf("deliveries: bad %d good %d", len(bad.changes), len(good.changes))
	}
}

type panicker struct{ calls int }

func (p *panicker) PropertyChanged(string, Property, any) error {
	p.calls++
	panic("listener bug")
}

func TestListenerPanicIsContained(t *testing.T) {
	h := New()
	bad := &panicker{}
	good := &recorder{}
	h.Subscribe("blk", nil, bad)
	h.Subscribe("blk", nil, good)

	h.Publish("blk", TopAddress, uint64(0x100), nil)
	if bad.calls != 1 || len(good.changes) != 1 {
		t.Fatalf("deliveries: bad %d good %d", bad.calls, len(good.changes))
	}

	// The key is not left mid-delivery.
	h.Publish("blk", TopAddress, uint64(0x200), nil)
	if len(good.changes) != 2 || good.changes[1].value != any(uint64(0x200)) {
		t.Fatalf("second publish: %v", good.changes)
	}
	h.Unsubscribe("blk", bad)
	h.Publish("blk", TopAddress, uint64(0x300), nil)
	if bad.calls != 2 || len(good.changes) != 3 {
		t.Fatalf("after unsubscribe: bad %d good %d", bad.calls, len(good.changes))
	}
}

func TestReentrantPublishIsQueued(t *testing.T) {
	h := New()
	a, b := &recorder{}, &recorder{}
	depth, maxDepth := 0, 0
	b.onEvent = func(prop Property, value any) {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		// b answers the first value by publishing a corrected one.
		if value == any(1) {
			h.Publish("blk", SelectedAddress, 2, b)
		}
		depth--
	}
	a.onEvent = func(Property, any) {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		depth--
	}
	h.Subscribe("blk", nil, a)
	h.Subscribe("blk", nil, b)

	h.Publish("blk", SelectedAddress, 1, a)
	if maxDepth != 1 {
		t.Fatalf("delivery nested %d deep", maxDepth)
	}
	if len(a.changes) != 1 || a.changes[0].value != any(2) {
		t.Fatalf("publisher saw %v, want the queued correction", a.changes)
	}
	if len(b.changes) != 1 {
		t.Fatalf("corrector saw its own publish: %v", b.changes)
	}
	if v, _ := h.CurrentValue("blk", SelectedAddress); v != any(2) {
		t.Fatalf("current value = %v", v)
	}
}

func TestPropertyString(t *testing.T) {
	want := []string{"selectedAddress", "columnSize", "topAddress"}
	for i, p := range AllProperties {
		if p.String() != want[i] {
			t.Errorf("%d = %q", p, p.String())
		}
	}
}
