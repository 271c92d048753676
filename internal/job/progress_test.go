// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package job

import "testing"

func TestBroadcasterDeliversToAllListeners(t *testing.T) {
	b := newBroadcaster()
	ch1, unsub1 := b.subscribe()
	ch2, unsub2 := b.subscribe()
	defer unsub1()
	defer unsub2()

	b.publish(ProgressEvent{Kind: KindProgress, Percent: 10})

	e1 := <-ch1
	e2 := <-ch2
	if e1.Percent != 10 || e2.Percent != 10 {
		t.Fatalf("got %v / %v, want both 10", e1.Percent, e2.Percent)
	}
}

func TestBroadcasterUnsubscribeStopsDelivery(t *testing.T) {
	b := newBroadcaster()
	ch, unsubscribe := b.subscribe()
	unsubscribe()

	b.publish(ProgressEvent{Kind: KindProgress, Percent: 1})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unsubscribed listener received an event")
		}
	default:
	}
}

func TestBroadcasterCloseClosesListenerChannels(t *testing.T) {
	b := newBroadcaster()
	ch, unsubscribe := b.subscribe()
	defer unsubscribe()

	b.close()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
}

func TestBroadcasterPreservesPublishOrder(t *testing.T) {
	b := newBroadcaster()
	ch, unsubscribe := b.subscribe()
	defer unsubscribe()

	for i := 0; i < 5; i++ {
		b.publish(ProgressEvent{Kind: KindProgress, Percent: float64(i)})
	}
	for i := 0; i < 5; i++ {
		e := <-ch
		if e.Percent != float64(i) {
			t.Fatalf("event %d: got percent %v, want %v", i, e.Percent, i)
		}
	}
}
