package sessions

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStoreSetsAndClearsMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)

	session := New("student-1", "Ada")
	store.Put("student-1", session)

	if !mr.Exists("exam:attempt:student-1") {
		t.Fatalf("expected liveness marker to be set")
	}

	got, ok := store.Get("student-1")
	if !ok || got.AttemptID() != session.AttemptID() {
		t.Fatalf("expected stored session back")
	}

	live, err := store.HasLiveAttempt(context.Background(), "student-1")
	if err != nil {
		t.Fatalf("liveness check: %v", err)
	}
	if !live {
		t.Fatalf("expected live attempt")
	}

	store.Delete("student-1")
	if mr.Exists("exam:attempt:student-1") {
		t.Fatalf("expected liveness marker to be removed")
	}
}

func TestRedisStoreMarkerExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)

	store.Put("student-1", New("student-1", "Ada"))
	mr.FastForward(2 * time.Minute)

	live, err := store.HasLiveAttempt(context.Background(), "student-1")
	if err != nil {
		t.Fatalf("liveness check: %v", err)
	}
	if live {
		t.Fatalf("expected marker to have expired")
	}
}
