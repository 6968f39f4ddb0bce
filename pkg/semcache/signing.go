// Copyright 2025 Certen Protocol
//
// Producer signing for cache entries: a reasoning node signs the
// (query_hash, response_hash) pair it submits so a consumer can attribute
// a cached answer to the node that produced it, grounded on
// pkg/verification/unified_verifier.go's combined ed25519/go-ethereum
// crypto usage for account and attestation material.

package semcache

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// entrySigningHash is the Keccak256 digest a producer signs: query_hash
// concatenated with response_hash, binding the signature to both halves
// of the cached payload.
func entrySigningHash(e *Entry) []byte {
	combined := make([]byte, 0, len(e.QueryHash)+len(e.ResponseHash))
	combined = append(combined, []byte(e.QueryHash)...)
	combined = append(combined, e.ResponseHash[:]...)
	hash := crypto.Keccak256Hash(combined)
	return hash[:]
}

// SignEntry fills QueryHash if it is empty, signs the Keccak256 digest of
// QueryHash and the caller-set ResponseHash with priv, and fills
// ProducerKey/Signature. ResponseHash is not computed here. Callers invoke this before
// Store; the cache itself treats both fields as opaque payload per §4.3.
func SignEntry(priv *ecdsa.PrivateKey, e *Entry) error {
	if e.QueryHash == "" {
		e.QueryHash = QueryHash(e.Query)
	}
	sig, err := crypto.Sign(entrySigningHash(e), priv)
	if err != nil {
		return fmt.Errorf("semcache: sign entry: %w", err)
	}
	e.ProducerKey = crypto.PubkeyToAddress(priv.PublicKey).Hex()
	e.Signature = sig
	return nil
}

// VerifyEntry recovers the signer's address from Signature and checks it
// matches ProducerKey. An entry with no signature (ProducerKey empty)
// passes trivially, matching the spec's "signature... computed by caller"
// contract for entries that never carried one.
func VerifyEntry(e *Entry) (bool, error) {
	if e.ProducerKey == "" {
		return true, nil
	}
	pub, err := crypto.SigToPub(entrySigningHash(e), e.Signature)
	if err != nil {
		return false, fmt.Errorf("semcache: recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex() == e.ProducerKey, nil
}
