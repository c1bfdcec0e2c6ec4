package resource

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTrackingWithoutLimit(t *testing.T) {
	c := NewController(Config{})

	if err := c.AcquireMemory(context.Background(), 1024); err != nil {
		t.Fatal(err)
	}
	if got := c.MemoryUsage(); got != 1024 {
		t.Fatalf("MemoryUsage = %d, want 1024", got)
	}

	c.ReleaseMemory(1024)
	if got := c.MemoryUsage(); got != 0 {
		t.Fatalf("MemoryUsage after release = %d, want 0", got)
	}
}

func TestMemoryHardLimit(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	if err := c.AcquireMemory(context.Background(), 100); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.AcquireMemory(ctx, 1); err == nil {
		t.Fatal("acquire over limit did not block")
	}

	c.ReleaseMemory(100)
	if err := c.AcquireMemory(context.Background(), 50); err != nil {
		t.Fatal(err)
	}
}

func TestBuildSlots(t *testing.T) {
	c := NewController(Config{MaxBuildWorkers: 2})

	if !c.TryAcquireBuild() || !c.TryAcquireBuild() {
		t.Fatal("could not acquire available slots")
	}
	if c.TryAcquireBuild() {
		t.Fatal("acquired slot beyond limit")
	}

	c.ReleaseBuild()
	if err := c.AcquireBuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.ReleaseBuild()
	c.ReleaseBuild()
}

func TestNilController(t *testing.T) {
	var c *Controller

	if err := c.AcquireBuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.ReleaseBuild()
	if err := c.AcquireMemory(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	c.ReleaseMemory(10)
	if err := c.WaitIngest(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if c.MemoryUsage() != 0 {
		t.Fatal("nil controller reports usage")
	}
}

func TestWaitIngestChunksLargeBatches(t *testing.T) {
	c := NewController(Config{IngestLimitPerSec: 100000})

	// Larger than the burst; must still admit promptly by chunking.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitIngest(ctx, 150000); err != nil {
		t.Fatal(err)
	}
}
