// Copyright 2025 Certen Protocol
//
// Package database provides sentinel errors for repository operations.

package database

import "errors"

// Sentinel errors for database operations
var (
	// ErrNotFound is returned when a requested entity is not found in the database
	ErrNotFound = errors.New("entity not found")

	// ErrTaskNotFound is returned when a task record is not found
	ErrTaskNotFound = errors.New("task not found")

	// ErrNodeNotFound is returned when a node record is not found
	ErrNodeNotFound = errors.New("node not found")

	// ErrChallengeNotFound is returned when a challenge record is not found
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrInferenceResultNotFound is returned when a cached inference result is not found
	ErrInferenceResultNotFound = errors.New("inference result not found")

	// ErrProofNotFound is returned when a zk-proof record is not found
	ErrProofNotFound = errors.New("proof not found")

	// ErrStakeVaultNotFound is returned when a node's stake vault is not found
	ErrStakeVaultNotFound = errors.New("stake vault not found")

	// ErrRewardVaultNotFound is returned when a node's reward vault is not found
	ErrRewardVaultNotFound = errors.New("reward vault not found")
)
