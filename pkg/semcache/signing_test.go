// Copyright 2025 Certen Protocol

package semcache

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignEntry_VerifyEntry_RoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	e := &Entry{
		Query:        "What is the capital of France?",
		Response:     []byte("Paris"),
		ResponseHash: ResponseHash([]byte("Paris")),
		Category:     CategoryFactual,
	}
	if err := SignEntry(priv, e); err != nil {
		t.Fatalf("SignEntry: %v", err)
	}
	if e.ProducerKey == "" || len(e.Signature) == 0 {
		t.Fatal("expected ProducerKey and Signature to be populated")
	}

	ok, err := VerifyEntry(e)
	if err != nil {
		t.Fatalf("VerifyEntry: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify against its own producer key")
	}
}

func TestVerifyEntry_RejectsTamperedResponseHash(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	e := &Entry{
		Query:        "What is the capital of France?",
		ResponseHash: ResponseHash([]byte("Paris")),
		Category:     CategoryFactual,
	}
	if err := SignEntry(priv, e); err != nil {
		t.Fatalf("SignEntry: %v", err)
	}

	e.ResponseHash = ResponseHash([]byte("London"))
	ok, err := VerifyEntry(e)
	if err != nil {
		t.Fatalf("VerifyEntry: %v", err)
	}
	if ok {
		t.Fatal("expected tampered response hash to fail verification")
	}
}

func TestVerifyEntry_UnsignedEntryPassesTrivially(t *testing.T) {
	e := &Entry{Query: "q"}
	ok, err := VerifyEntry(e)
	if err != nil {
		t.Fatalf("VerifyEntry: %v", err)
	}
	if !ok {
		t.Fatal("expected an unsigned entry to verify trivially")
	}
}

func TestStore_AssignsEntryID(t *testing.T) {
	c := New(nil)
	e := &Entry{Query: "hello", Response: []byte("world"), Category: CategoryGeneralQA}
	if err := c.Store(e); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if e.EntryID == "" {
		t.Fatal("expected Store to assign an EntryID")
	}
}
