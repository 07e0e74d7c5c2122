package main

import (
	"testing"
	"time"
)

func TestRolloverLockTTL(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		time.Minute:     30 * time.Second,
		4 * time.Second: 5 * time.Second,
		time.Hour:       30 * time.Minute,
	}
	for interval, want := range cases {
		if got := rolloverLockTTL(interval); got != want {
			t.Fatalf("interval %s: expected ttl %s, got %s", interval, want, got)
		}
	}
}
