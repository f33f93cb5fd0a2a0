package httpc

import (
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	c := NewClient(5 * time.Second)
	if c.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.Timeout)
	}
	if c.Transport == nil {
		t.Fatal("expected transport to be set")
	}

	streaming := NewClient(0)
	if streaming.Timeout != 0 {
		t.Errorf("expected no overall timeout, got %v", streaming.Timeout)
	}
}
