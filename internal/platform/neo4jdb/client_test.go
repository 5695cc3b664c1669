package neo4jdb

import (
	"context"
	"testing"

	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

func TestNewFromEnvWithoutURI(t *testing.T) {
	t.Setenv("NEO4J_URI", "")
	c, err := NewFromEnv(logger.Nop())
	if err != nil || c != nil {
		t.Fatalf("NewFromEnv: want=nil,nil got=%v,%v", c, err)
	}
}

func TestNewFromEnvRequiresLogger(t *testing.T) {
	if _, err := NewFromEnv(nil); err == nil {
		t.Fatalf("NewFromEnv(nil): want error")
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
