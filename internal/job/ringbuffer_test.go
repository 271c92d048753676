// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package job

import (
	"reflect"
	"testing"
)

func TestRingBufferUnderCapacity(t *testing.T) {
	r := newRingBuffer(4)
	r.add("a")
	r.add("b")
	if got, want := r.lines(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRingBufferWrapsAtCapacity(t *testing.T) {
	r := newRingBuffer(3)
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		r.add(l)
	}
	if got, want := r.lines(), []string{"c", "d", "e"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
