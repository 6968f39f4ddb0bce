// Copyright 2025 Certen Protocol
//
// Package contentstore adapts an opaque content-addressed backend (IPFS,
// S3, or an in-memory map in tests) behind a single put/get contract: the
// store computes hashes, chunking, and Merkle manifests; the backend only
// ever sees bytes in and bytes out.
package contentstore

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/intentmesh/coordinator/pkg/errs"
	"github.com/intentmesh/coordinator/pkg/merkle"
)

const (
	// MaxInputSize is the largest payload put() will accept.
	MaxInputSize = 10 * 1024 * 1024 // 10 MiB

	// ChunkSize is the size each chunk is split into once the (possibly
	// compressed) payload exceeds it.
	ChunkSize = 256 * 1024 // 256 KiB

	manifestVersion = 1

	gzipMagic0 = 0x1f
	gzipMagic1 = 0x8b
)

// Backend is the opaque collaborator contract: put raw bytes, get them
// back by the identifier the backend chose to assign.
type Backend interface {
	Put(data []byte) (cid string, err error)
	Get(cid string) ([]byte, error)
}

// ChunkRef describes one chunk of a manifest.
type ChunkRef struct {
	Index int    `json:"index"`
	CID   string `json:"cid"`
	Hash  string `json:"hash"`
}

// Manifest is the multi-chunk record uploaded when a payload exceeds
// ChunkSize once compressed.
type Manifest struct {
	Version     int        `json:"version"`
	ContentHash string     `json:"content_hash"`
	MerkleRoot  string     `json:"merkle_root"`
	Compression string     `json:"compression"`
	Chunks      []ChunkRef `json:"chunks"`
}

// UploadResult is returned by Put.
type UploadResult struct {
	CID          string
	OriginalSize int
	StoredSize   int
	Compression  string // "none" or "gzip"
	ContentHash  [32]byte
	MerkleRoot   [32]byte
	ChunkCount   int
	ChunkCIDs    []string
}

// Store implements the content-addressed put/get contract over a Backend.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Put stores data, applying gzip if it shrinks the payload and chunking if
// the stored form still exceeds ChunkSize.
func (s *Store) Put(data []byte, mime, name string) (*UploadResult, error) {
	const op = "contentstore.Put"
	if len(data) > MaxInputSize {
		return nil, errs.New(errs.Validation, op, "payload size %d exceeds max %d", len(data), MaxInputSize)
	}

	contentHash := sha256.Sum256(data)

	stored := data
	compression := "none"
	if len(data) >= 1024 {
		compressed, err := gzipCompress(data)
		if err != nil {
			return nil, errs.Wrap(errs.Integrity, op, err)
		}
		if len(compressed) < len(data) {
			stored = compressed
			compression = "gzip"
		}
	}

	if len(stored) <= ChunkSize {
		cid, err := s.backend.Put(stored)
		if err != nil {
			return nil, errs.Wrap(errs.BackendDegraded, op, err)
		}
		return &UploadResult{
			CID:          cid,
			OriginalSize: len(data),
			StoredSize:   len(stored),
			Compression:  compression,
			ContentHash:  contentHash,
			MerkleRoot:   contentHash,
			ChunkCount:   1,
			ChunkCIDs:    []string{cid},
		}, nil
	}

	return s.putChunked(op, data, stored, compression, contentHash)
}

func (s *Store) putChunked(op string, original, stored []byte, compression string, contentHash [32]byte) (*UploadResult, error) {
	var chunkHashes [][]byte
	var chunkRefs []ChunkRef
	var chunkCIDs []string

	for i := 0; i < len(stored); i += ChunkSize {
		end := i + ChunkSize
		if end > len(stored) {
			end = len(stored)
		}
		chunk := stored[i:end]
		h := sha256.Sum256(chunk)

		cid, err := s.backend.Put(chunk)
		if err != nil {
			return nil, errs.Wrap(errs.BackendDegraded, op, err)
		}

		chunkHashes = append(chunkHashes, h[:])
		chunkRefs = append(chunkRefs, ChunkRef{Index: i / ChunkSize, CID: cid, Hash: hex.EncodeToString(h[:])})
		chunkCIDs = append(chunkCIDs, cid)
	}

	root := merkle.RootOf(chunkHashes)

	manifest := Manifest{
		Version:     manifestVersion,
		ContentHash: hex.EncodeToString(contentHash[:]),
		MerkleRoot:  hex.EncodeToString(root[:]),
		Compression: compression,
		Chunks:      chunkRefs,
	}
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return nil, errs.Wrap(errs.Integrity, op, err)
	}

	manifestCID, err := s.backend.Put(manifestBytes)
	if err != nil {
		return nil, errs.Wrap(errs.BackendDegraded, op, err)
	}

	return &UploadResult{
		CID:          manifestCID,
		OriginalSize: len(original),
		StoredSize:   len(stored),
		Compression:  compression,
		ContentHash:  contentHash,
		MerkleRoot:   root,
		ChunkCount:   len(chunkRefs),
		ChunkCIDs:    chunkCIDs,
	}, nil
}

// Get fetches and reconstitutes the original bytes for cid, whether it
// names a single object or a chunk manifest.
func (s *Store) Get(cid string) ([]byte, error) {
	const op = "contentstore.Get"
	raw, err := s.backend.Get(cid)
	if err != nil {
		return nil, errs.Wrap(errs.BackendDegraded, op, err)
	}

	if manifest, ok := tryParseManifest(raw); ok {
		return s.getManifest(op, manifest)
	}

	return maybeDecompress(op, raw)
}

func (s *Store) getManifest(op string, m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	var chunkHashes [][]byte
	for _, c := range m.Chunks {
		chunk, err := s.backend.Get(c.CID)
		if err != nil {
			return nil, errs.Wrap(errs.BackendDegraded, op, err)
		}
		h := sha256.Sum256(chunk)
		if hex.EncodeToString(h[:]) != c.Hash {
			return nil, errs.New(errs.Integrity, op, "chunk %d hash mismatch", c.Index)
		}
		chunkHashes = append(chunkHashes, h[:])
		buf.Write(chunk)
	}

	root := merkle.RootOf(chunkHashes)
	if hex.EncodeToString(root[:]) != m.MerkleRoot {
		return nil, errs.New(errs.Integrity, op, "manifest merkle root mismatch")
	}

	stored := buf.Bytes()
	var out []byte
	var err error
	switch m.Compression {
	case "gzip":
		out, err = gzipDecompress(stored)
		if err != nil {
			return nil, errs.Wrap(errs.Integrity, op, err)
		}
	default:
		out = stored
	}

	hash := sha256.Sum256(out)
	if hex.EncodeToString(hash[:]) != m.ContentHash {
		return nil, errs.New(errs.Integrity, op, "content hash mismatch")
	}
	return out, nil
}

func tryParseManifest(raw []byte) (*Manifest, bool) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	if m.Version == 0 || m.ContentHash == "" || len(m.Chunks) == 0 {
		return nil, false
	}
	return &m, true
}

func maybeDecompress(op string, raw []byte) ([]byte, error) {
	if len(raw) >= 2 && raw[0] == gzipMagic0 && raw[1] == gzipMagic1 {
		out, err := gzipDecompress(raw)
		if err != nil {
			return nil, errs.Wrap(errs.Integrity, op, err)
		}
		return out, nil
	}
	return raw, nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// loadManifest fetches cid and parses it as a chunk manifest, failing if
// the object it names isn't one (a single-object Put has no per-chunk
// hashes to build a proof from).
func (s *Store) loadManifest(op, cid string) (*Manifest, error) {
	raw, err := s.backend.Get(cid)
	if err != nil {
		return nil, errs.Wrap(errs.BackendDegraded, op, err)
	}
	m, ok := tryParseManifest(raw)
	if !ok {
		return nil, errs.New(errs.Validation, op, "cid %s is not a chunk manifest", cid)
	}
	return m, nil
}

// ChunkReceipt builds an inclusion proof for one chunk of a manifest,
// rebuilding the tree from the hashes the manifest already advertises in
// Chunks[].Hash — it never fetches any chunk's bytes, target included.
func (s *Store) ChunkReceipt(manifestCID string, chunkIndex int) (*merkle.ManifestReceipt, error) {
	const op = "contentstore.ChunkReceipt"
	m, err := s.loadManifest(op, manifestCID)
	if err != nil {
		return nil, err
	}
	if chunkIndex < 0 || chunkIndex >= len(m.Chunks) {
		return nil, errs.New(errs.Validation, op, "chunk index %d out of range [0, %d)", chunkIndex, len(m.Chunks))
	}

	leaves := make([][]byte, len(m.Chunks))
	for i, c := range m.Chunks {
		h, err := hex.DecodeString(c.Hash)
		if err != nil || len(h) != 32 {
			return nil, errs.New(errs.Integrity, op, "chunk %d has a malformed hash", c.Index)
		}
		leaves[i] = h
	}

	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, errs.Wrap(errs.Integrity, op, err)
	}
	if tree.RootHex() != m.MerkleRoot {
		return nil, errs.New(errs.Integrity, op, "manifest merkle root does not match its own advertised chunk hashes")
	}

	proof, err := tree.GenerateProof(chunkIndex)
	if err != nil {
		return nil, errs.Wrap(errs.Integrity, op, err)
	}
	if ok, err := merkle.VerifyProof(leaves[chunkIndex], proof, tree.Root()); err != nil || !ok {
		return nil, errs.New(errs.Integrity, op, "generated proof failed self-verification")
	}

	entries := make([]merkle.ReceiptEntry, len(proof.Path))
	for i, node := range proof.Path {
		entries[i] = merkle.ReceiptEntry{Hash: node.Hash, Right: node.Position == merkle.Right}
	}

	return &merkle.ManifestReceipt{
		ChunkIndex: chunkIndex,
		Receipt: &merkle.Receipt{
			Start: proof.LeafHash,
			Anchor: proof.MerkleRoot,
			// LocalBlock carries the tree's leaf count here, not a chain
			// height; a receipt consumer only needs it to size the proof.
			LocalBlock: uint64(proof.TreeSize),
			Entries:    entries,
		},
	}, nil
}

// GetChunk fetches only the target chunk's bytes — no sibling chunks, no
// full-object reassembly — and verifies its inclusion against a receipt
// rebuilt from the manifest's advertised hashes before returning it.
func (s *Store) GetChunk(manifestCID string, chunkIndex int) ([]byte, error) {
	const op = "contentstore.GetChunk"
	m, err := s.loadManifest(op, manifestCID)
	if err != nil {
		return nil, err
	}
	if chunkIndex < 0 || chunkIndex >= len(m.Chunks) {
		return nil, errs.New(errs.Validation, op, "chunk index %d out of range [0, %d)", chunkIndex, len(m.Chunks))
	}
	ref := m.Chunks[chunkIndex]

	receipt, err := s.ChunkReceipt(manifestCID, chunkIndex)
	if err != nil {
		return nil, err
	}
	if err := receipt.Validate(ref.Hash); err != nil {
		return nil, errs.Wrap(errs.Integrity, op, err)
	}

	chunk, err := s.backend.Get(ref.CID)
	if err != nil {
		return nil, errs.Wrap(errs.BackendDegraded, op, err)
	}
	h := sha256.Sum256(chunk)
	if hex.EncodeToString(h[:]) != ref.Hash {
		return nil, errs.New(errs.Integrity, op, "chunk %d hash mismatch", chunkIndex)
	}
	return chunk, nil
}
