package heychat

import (
	"fmt"
	"testing"
)

func TestMsgCacheAdmitOnce(t *testing.T) {
	c := NewMsgCache(10)

	if !c.Admit("m1") {
		t.Fatal("first admit should succeed")
	}
	if c.Admit("m1") {
		t.Error("duplicate admit during processing should fail")
	}

	c.Release("m1")
	if c.Admit("m1") {
		t.Error("admit after release should still fail")
	}
}

func TestMsgCacheEviction(t *testing.T) {
	c := NewMsgCache(3)
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("m%d", i)
		if !c.Admit(id) {
			t.Fatalf("admit %s failed", id)
		}
		c.Release(id)
	}

	if c.Len() != 3 {
		t.Errorf("len = %d, want 3", c.Len())
	}
	// Oldest id was evicted and is admissible again.
	if !c.Admit("m0") {
		t.Error("evicted id should be admissible")
	}
	// Newer ids are still remembered.
	if c.Admit("m3") {
		t.Error("recent id should still be deduplicated")
	}
}

func TestMsgCacheConcurrentAdmit(t *testing.T) {
	c := NewMsgCache(100)

	const n = 32
	admitted := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() { admitted <- c.Admit("same") }()
	}

	wins := 0
	for i := 0; i < n; i++ {
		if <-admitted {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("admitted %d times, want exactly 1", wins)
	}
}

func TestMsgCacheDefaultCapacity(t *testing.T) {
	c := NewMsgCache(0)
	if c.capacity != defaultMsgCacheSize {
		t.Errorf("capacity = %d", c.capacity)
	}
}
