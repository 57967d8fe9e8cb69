package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/wolfman30/docbook-ai/internal/chat"
	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/internal/doctors"
	"github.com/wolfman30/docbook-ai/internal/scheduler"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	_ = client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client for unreachable redis")
	}
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), &appconfig.Config{}, logging.New("error"))
	if err != nil || pool != nil {
		t.Fatalf("expected nil pool and error, got %v %v", pool, err)
	}
}

func TestBuildMongoDatabaseEmptyURIReturnsNil(t *testing.T) {
	client, db, err := BuildMongoDatabase(context.Background(), &appconfig.Config{}, logging.New("error"))
	if err != nil || client != nil || db != nil {
		t.Fatalf("expected nils, got %v %v %v", client, db, err)
	}
}

func TestBuildStoresInMemory(t *testing.T) {
	stores, err := BuildStores(context.Background(), &appconfig.Config{}, nil, nil, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stores.Backend != "memory" {
		t.Fatalf("expected memory backend, got %s", stores.Backend)
	}
	if _, ok := stores.Doctors.(*doctors.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory doctors, got %T", stores.Doctors)
	}
	if _, ok := stores.Chat.(*chat.MemoryStore); !ok {
		t.Fatalf("expected memory chat store, got %T", stores.Chat)
	}
}

func TestBuildStoresRequiresBackingClient(t *testing.T) {
	if _, err := BuildStores(context.Background(), &appconfig.Config{DoctorStore: "postgres"}, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected error for postgres store without a pool")
	}
	if _, err := BuildStores(context.Background(), &appconfig.Config{DoctorStore: "mongo"}, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected error for mongo store without a database")
	}
}

func TestBuildStoresRedisChat(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	defer client.Close()

	stores, err := BuildStores(context.Background(), &appconfig.Config{}, nil, nil, client, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := stores.Chat.(*chat.RedisStore); !ok {
		t.Fatalf("expected redis chat store, got %T", stores.Chat)
	}

	sched, poller := BuildScheduler(client, nil)
	if _, ok := sched.(*scheduler.RedisScheduler); !ok || poller == nil {
		t.Fatalf("expected redis scheduler with poller, got %T", sched)
	}
	sched, poller = BuildScheduler(nil, nil)
	if _, ok := sched.(*scheduler.MemoryScheduler); !ok || poller != nil {
		t.Fatalf("expected memory scheduler without poller, got %T", sched)
	}
}
