package cache

import (
	"context"
	"testing"
)

func TestKeyNamespacing(t *testing.T) {
	c := &RedisClient{prefix: KeyPrefix}
	tests := map[string]string{
		"auth:blacklist:j1": "itpec-quiz:auth:blacklist:j1",
		"":                  "itpec-quiz:",
	}
	for in, want := range tests {
		if got := c.Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetRejectsNonPositiveTTL(t *testing.T) {
	c := &RedisClient{prefix: KeyPrefix}
	if err := c.Set(context.Background(), "k", "v", 0); err == nil {
		t.Error("Set with zero ttl should fail before reaching redis")
	}
}
