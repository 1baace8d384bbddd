package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "auto_reviews/internal/adapters/redis"
)

func TestCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	type snapshot struct {
		Total int
		Note  string
	}
	in := snapshot{Total: 3, Note: "ok"}
	if err := c.Set(context.Background(), "status", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out snapshot
	ok, err := c.Get(context.Background(), "status", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out != in {
		t.Fatalf("roundtrip: %+v", out)
	}
}

func TestCache_MissIsNotAnError(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	var out string
	ok, err := c.Get(context.Background(), "absent", &out)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestCache_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	if err := c.Set(context.Background(), "k", "v", 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(31 * time.Second)

	var out string
	ok, err := c.Get(context.Background(), "k", &out)
	if err != nil || ok {
		t.Fatalf("expected expired key, ok=%v err=%v", ok, err)
	}
}

func TestCache_Del(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	_ = c.Set(context.Background(), "k", "v", 60)
	if err := c.Del(context.Background(), "k"); err != nil {
		t.Fatalf("del: %v", err)
	}

	var out string
	if ok, _ := c.Get(context.Background(), "k", &out); ok {
		t.Fatal("expected key gone")
	}
}
