// Copyright 2025 Certen Protocol

package zkproof

import "github.com/consensys/gnark/frontend"

// TraceCircuit proves knowledge of a reasoning trace whose hash commits to
// the publicly disclosed prompt/output hashes and task metadata, without
// revealing the trace itself. Deliberately simplified relative to
// pkg/crypto/bls_zkp's pairing-oriented circuit: this proves a preimage
// binding, not full signature or pairing verification (§4.5.3 non-goal).
type TraceCircuit struct {
	// Public inputs, known to the verifier.
	PromptHash        frontend.Variable `gnark:",public"`
	OutputHash        frontend.Variable `gnark:",public"`
	TaskID            frontend.Variable `gnark:",public"`
	VerificationScore frontend.Variable `gnark:",public"`

	// Private inputs, known only to the prover.
	TraceHash       frontend.Variable
	TraceCommitment frontend.Variable
}

// Define implements the circuit's constraints.
func (c *TraceCircuit) Define(api frontend.API) error {
	computed := traceCommitment(api, c.PromptHash, c.OutputHash, c.TaskID, c.VerificationScore, c.TraceHash)
	api.AssertIsEqual(c.TraceCommitment, computed)
	api.AssertIsDifferent(c.TraceHash, 0)
	return nil
}

// traceCommitment computes a fixed polynomial binding over the circuit's
// public fields and the private trace hash.
func traceCommitment(api frontend.API, promptHash, outputHash, taskID, score, traceHash frontend.Variable) frontend.Variable {
	r := frontend.Variable(7)
	result := promptHash
	result = api.Add(result, api.Mul(outputHash, r))
	r2 := api.Mul(r, r)
	result = api.Add(result, api.Mul(taskID, r2))
	r3 := api.Mul(r2, r)
	result = api.Add(result, api.Mul(score, r3))
	r4 := api.Mul(r3, r)
	result = api.Add(result, api.Mul(traceHash, r4))
	return result
}
