// Copyright 2025 Certen Protocol

package zkproof

import "testing"

func TestProofCache_EvictsOldestOnOverflow(t *testing.T) {
	c := NewProofCache(2)
	c.Put(1, &Proof{TaskID: 1})
	c.Put(2, &Proof{TaskID: 2})
	c.Put(3, &Proof{TaskID: 3})

	if _, ok := c.Get(1); ok {
		t.Fatalf("expected task 1 evicted")
	}
	if _, ok := c.Get(2); !ok {
		t.Fatalf("expected task 2 retained")
	}
	if _, ok := c.Get(3); !ok {
		t.Fatalf("expected task 3 retained")
	}
	if c.Len() != 2 {
		t.Fatalf("expected cache capped at 2, got %d", c.Len())
	}
}

func TestProofCache_OverwriteDoesNotEvict(t *testing.T) {
	c := NewProofCache(2)
	c.Put(1, &Proof{TaskID: 1})
	c.Put(1, &Proof{TaskID: 1, SizeBytes: 99})

	if c.Len() != 1 {
		t.Fatalf("expected overwrite to not grow cache, got len %d", c.Len())
	}
	p, _ := c.Get(1)
	if p.SizeBytes != 99 {
		t.Fatalf("expected overwritten entry retained")
	}
}
