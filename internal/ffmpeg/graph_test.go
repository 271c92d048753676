// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ffmpeg

import "testing"

func TestChainString(t *testing.T) {
	c := BuildChain("scale=100:100", Filter("hqdn3d"), "split=2")
	if got, want := c.String(), "scale=100:100,hqdn3d,split=2"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildChainFlattensNestedChain(t *testing.T) {
	inner := BuildChain("a", "b")
	outer := BuildChain(inner, "c")
	if got, want := outer.String(), "a,b,c"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStreamString(t *testing.T) {
	s := Stream{
		Sources: []string{Label("0:v")},
		Chain:   BuildChain("scale=200:200"),
		Sinks:   []string{Label("out")},
	}
	if got, want := s.String(), "[0:v]scale=200:200[out]"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGraphString(t *testing.T) {
	g := Graph{
		{Sources: []string{Label("0:v")}, Chain: BuildChain("scale=10:10"), Sinks: []string{Label("a")}},
		{Sources: []string{Label("a")}, Chain: BuildChain("hflip"), Sinks: []string{Label("out")}},
	}
	want := "[0:v]scale=10:10[a];[a]hflip[out]"
	if got := g.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildChainPanicsOnBadType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unsupported argument type")
		}
	}()
	BuildChain(42)
}
