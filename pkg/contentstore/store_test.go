// Copyright 2025 Certen Protocol

package contentstore

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/intentmesh/coordinator/pkg/errs"
)

func TestPutGetRoundTrip_Small(t *testing.T) {
	store := New(NewMemoryBackend())
	data := []byte("hello content-addressed world")

	res, err := store.Put(data, "text/plain", "hello.txt")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if res.ChunkCount != 1 {
		t.Fatalf("expected single chunk, got %d", res.ChunkCount)
	}

	got, err := store.Get(res.CID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %q want %q", got, data)
	}
}

func TestPutGetRoundTrip_Chunked(t *testing.T) {
	store := New(NewMemoryBackend())
	data := make([]byte, 3*ChunkSize+17)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	res, err := store.Put(data, "application/octet-stream", "blob.bin")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if res.ChunkCount < 2 {
		t.Fatalf("expected chunking, got %d chunk(s)", res.ChunkCount)
	}

	got, err := store.Get(res.CID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("chunked round trip mismatch")
	}
}

func TestPut_RejectsOversize(t *testing.T) {
	store := New(NewMemoryBackend())
	data := make([]byte, MaxInputSize+1)

	_, err := store.Put(data, "application/octet-stream", "big.bin")
	if err == nil {
		t.Fatalf("expected error for oversize payload")
	}
	if errs.KindOf(err) != errs.Validation {
		t.Fatalf("expected Validation kind, got %s", errs.KindOf(err))
	}
}

func TestPut_CompressesCompressibleData(t *testing.T) {
	store := New(NewMemoryBackend())
	data := bytes.Repeat([]byte("a"), 4096)

	res, err := store.Put(data, "text/plain", "repeated.txt")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if res.Compression != "gzip" {
		t.Fatalf("expected gzip compression for highly repetitive data, got %s", res.Compression)
	}
	if res.StoredSize >= res.OriginalSize {
		t.Fatalf("expected stored size to shrink: stored=%d original=%d", res.StoredSize, res.OriginalSize)
	}
}

func TestChunkReceipt_GetChunk_FetchesOnlyTargetChunk(t *testing.T) {
	backend := NewMemoryBackend()
	store := New(backend)
	data := make([]byte, 3*ChunkSize+17)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	res, err := store.Put(data, "application/octet-stream", "blob.bin")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if res.ChunkCount < 2 {
		t.Fatalf("expected chunking, got %d chunk(s)", res.ChunkCount)
	}

	receipt, err := store.ChunkReceipt(res.CID, 1)
	if err != nil {
		t.Fatalf("ChunkReceipt: %v", err)
	}
	if receipt.ChunkIndex != 1 {
		t.Fatalf("expected chunk index 1, got %d", receipt.ChunkIndex)
	}

	chunk, err := store.GetChunk(res.CID, 1)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	want := data[ChunkSize : 2*ChunkSize]
	if !bytes.Equal(chunk, want) {
		t.Fatalf("chunk mismatch: got %d bytes want %d bytes", len(chunk), len(want))
	}
}

func TestChunkReceipt_RejectsOutOfRangeIndex(t *testing.T) {
	store := New(NewMemoryBackend())
	data := make([]byte, 3*ChunkSize+17)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	res, err := store.Put(data, "application/octet-stream", "blob.bin")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := store.ChunkReceipt(res.CID, res.ChunkCount); err == nil {
		t.Fatalf("expected error for out-of-range chunk index")
	} else if errs.KindOf(err) != errs.Validation {
		t.Fatalf("expected Validation kind, got %s", errs.KindOf(err))
	}
}

func TestGetChunk_RejectsTamperedChunk(t *testing.T) {
	backend := NewMemoryBackend()
	store := New(backend)
	data := make([]byte, 3*ChunkSize+17)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	res, err := store.Put(data, "application/octet-stream", "blob.bin")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	backend.mu.Lock()
	backend.store[res.ChunkCIDs[1]][0] ^= 0xff
	backend.mu.Unlock()

	_, err = store.GetChunk(res.CID, 1)
	if err == nil {
		t.Fatalf("expected integrity error for tampered chunk")
	}
	if errs.KindOf(err) != errs.Integrity {
		t.Fatalf("expected Integrity kind, got %s", errs.KindOf(err))
	}
}

func TestChunkReceipt_RejectsNonManifestCID(t *testing.T) {
	store := New(NewMemoryBackend())
	res, err := store.Put([]byte("small payload, no manifest"), "text/plain", "small.txt")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := store.ChunkReceipt(res.CID, 0); err == nil {
		t.Fatalf("expected error: single-object CID has no chunk manifest")
	}
}

func TestGet_IntegrityViolationOnTamperedChunk(t *testing.T) {
	backend := NewMemoryBackend()
	store := New(backend)
	data := make([]byte, ChunkSize+10)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	res, err := store.Put(data, "application/octet-stream", "x.bin")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Tamper with the first chunk's stored bytes directly.
	backend.mu.Lock()
	backend.store[res.ChunkCIDs[0]][0] ^= 0xff
	backend.mu.Unlock()

	_, err = store.Get(res.CID)
	if err == nil {
		t.Fatalf("expected integrity error for tampered chunk")
	}
	if errs.KindOf(err) != errs.Integrity {
		t.Fatalf("expected Integrity kind, got %s", errs.KindOf(err))
	}
}
