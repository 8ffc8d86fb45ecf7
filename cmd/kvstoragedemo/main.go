package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/watt-toolkit/kvstorage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap: %v", err)
	}
	defer zl.Sync()

	s := kvstorage.New(1, "demo",
		kvstorage.NewHashCache(),
		nil,
		kvstorage.NewLRUExpire(),
		2, 0,
		kvstorage.WithLogger(kvstorage.NewZapLogger(zl)))

	log.Println("kvstorage demo starting")

	// 1) LRU eviction at capacity 2.
	s.Insert("a", []byte("1"), 0, 10*time.Second)
	s.Insert("b", []byte("2"), 0, 10*time.Second)
	s.Insert("c", []byte("3"), 0, 10*time.Second) // evicts "a"
	if _, ok := s.Lookup("a"); !ok {
		log.Println("lookup a: absent (evicted)")
	}
	if v, ok := s.Lookup("c"); ok {
		log.Printf("lookup c = %q", v.Payload)
	}

	select {
	case <-ctx.Done():
		log.Println("received shutdown signal")
		return
	default:
	}

	// 2) TTL expiration (reported absent, not physically purged here).
	s2 := kvstorage.New(2, "ttl-demo", kvstorage.NewHashCache(), nil, kvstorage.NewLRUExpire(), 0, 0)
	s2.Insert("x", []byte("v"), 0, 50*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	if _, ok := s2.Lookup("x"); !ok {
		log.Println("lookup x: absent (expired)")
	}

	// 3) Radix cache over IPv4 keys.
	radixStorage := kvstorage.New(3, "radix-demo", kvstorage.NewRadixCache(), nil, kvstorage.NewLRUExpire(), 0, 0)
	ok, _ := radixStorage.Insert("10.0.0.1", []byte("v"), 0, 0)
	log.Printf("radix insert 10.0.0.1: %v", ok)
	ok, _ = radixStorage.Insert("not-an-ip", []byte("v"), 0, 0)
	log.Printf("radix insert not-an-ip: %v", ok)

	log.Println("done")
}
