package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get returned a hit for a missing key")
	}
}

func TestExpiry(t *testing.T) {
	c := New()
	c.Set("k", "v", -time.Second)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
}

func TestGenerateKeyIsStable(t *testing.T) {
	c := New()
	a := c.GenerateKey("Bitcoin ETF approved")
	b := c.GenerateKey("Bitcoin ETF approved")
	if a != b {
		t.Error("same text produced different keys")
	}
	if a == c.GenerateKey("other text") {
		t.Error("different texts collided")
	}
}
