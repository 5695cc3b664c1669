package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

func TestNewVerifiedStoreWithoutAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	s, err := NewVerifiedStore(logger.Nop())
	if err != nil || s != nil {
		t.Fatalf("NewVerifiedStore: want=nil,nil got=%v,%v", s, err)
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	t.Setenv("REDIS_VERIFIED_PREFIX", "kp:ok:")
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	s := NewVerifiedStoreFromClient(rdb, logger.Nop()).(*verifiedStore)
	if got := s.key(" q-7 "); got != "kp:ok:q-7" {
		t.Fatalf("key: want=%q got=%q", "kp:ok:q-7", got)
	}
}

func TestEmptyInputsSkipRedis(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	s := NewVerifiedStoreFromClient(rdb, logger.Nop())

	ctx := context.Background()
	if ids, err := s.Verified(ctx, "  "); err != nil || ids != nil {
		t.Fatalf("Verified(blank): want=nil,nil got=%v,%v", ids, err)
	}
	if err := s.MarkVerified(ctx, "q1", " ", ""); err != nil {
		t.Fatalf("MarkVerified(no ids): %v", err)
	}
	if err := s.Unmark(ctx, "", "kp_a"); err != nil {
		t.Fatalf("Unmark(no question): %v", err)
	}
}

func TestToMembers(t *testing.T) {
	got := toMembers([]string{" kp_a", "", "kp_b "})
	if len(got) != 2 || got[0] != "kp_a" || got[1] != "kp_b" {
		t.Fatalf("toMembers: want=[kp_a kp_b] got=%v", got)
	}
}
