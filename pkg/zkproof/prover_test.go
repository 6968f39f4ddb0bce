// Copyright 2025 Certen Protocol

package zkproof

import (
	"math/big"
	"testing"
	"time"
)

func bigFromByte(b byte) *big.Int {
	return big.NewInt(int64(b))
}

func TestVerifyProof_StructuralInvariants(t *testing.T) {
	valid := &Proof{
		ProofData:    make([]byte, minProofDataBytes),
		PublicInputs: make([]byte, minPublicInputBytes),
		ProofType:    ProofTypeGroth16BN254,
	}
	if err := VerifyProof(valid); err != nil {
		t.Fatalf("expected valid proof to pass, got %v", err)
	}

	short := &Proof{
		ProofData:    make([]byte, minProofDataBytes-1),
		PublicInputs: make([]byte, minPublicInputBytes),
		ProofType:    ProofTypeGroth16BN254,
	}
	if err := VerifyProof(short); err == nil {
		t.Fatalf("expected short proof_data to fail")
	}

	unknownBackend := &Proof{
		ProofData:    make([]byte, minProofDataBytes),
		PublicInputs: make([]byte, minPublicInputBytes),
		ProofType:    ProofType("unknown"),
	}
	if err := VerifyProof(unknownBackend); err == nil {
		t.Fatalf("expected unregistered backend to fail")
	}
}

func TestBuildPublicInputs_Layout(t *testing.T) {
	var promptHash, outputHash [32]byte
	promptHash[0] = 0xAA
	outputHash[0] = 0xBB
	ts := time.Unix(1700000000, 0)

	buf := buildPublicInputs(promptHash, outputHash, ts, 8500)
	if len(buf) != 74 {
		t.Fatalf("expected 74-byte public_inputs (32+32+8+2), got %d", len(buf))
	}
	if buf[0] != 0xAA || buf[32] != 0xBB {
		t.Fatalf("expected prompt/output hash at expected offsets")
	}
}

func TestTraceCommitmentBig_Deterministic(t *testing.T) {
	a := traceCommitmentBig(bigFromByte(1), bigFromByte(2), bigFromByte(3), bigFromByte(4), bigFromByte(5))
	b := traceCommitmentBig(bigFromByte(1), bigFromByte(2), bigFromByte(3), bigFromByte(4), bigFromByte(5))
	if a.Cmp(b) != 0 {
		t.Fatalf("expected deterministic commitment for identical inputs")
	}
	c := traceCommitmentBig(bigFromByte(1), bigFromByte(2), bigFromByte(3), bigFromByte(4), bigFromByte(9))
	if a.Cmp(c) == 0 {
		t.Fatalf("expected different trace hash to change commitment")
	}
}
