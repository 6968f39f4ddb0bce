// Copyright 2025 Certen Protocol
//
// Unit tests for NodeRepository
// Uses a test database or skips if none is configured

package database

import (
	"context"
	"testing"

	"github.com/intentmesh/coordinator/pkg/economy"
	"github.com/intentmesh/coordinator/pkg/tasks"
)

func sampleNode(owner string) *tasks.Node {
	return &tasks.Node{
		Owner:                owner,
		Controller:           owner,
		ModelCapability:      "llama3-70b",
		WorkflowAffinity:     tasks.WorkflowBalanced,
		StakeAmount:          5000,
		BaseStakeRequirement: 1000,
		DynamicMinStake:      1000,
		ReputationScoreBps:   6000,
		Status:               tasks.NodeActive,
		DynamicMultiplierBps: 10000,
	}
}

func TestNodeRepository_UpsertAndGet(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured (set COORDINATOR_TEST_DB_HOST)")
	}
	repo := NewNodeRepository(testClient)
	ctx := context.Background()

	want := sampleNode("acc://node-1.acme")
	if err := repo.UpsertNode(ctx, want); err != nil {
		t.Fatalf("UpsertNode failed: %v", err)
	}

	got, err := repo.GetNode(ctx, want.Owner)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if got.ModelCapability != want.ModelCapability || got.Status != tasks.NodeActive {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestNodeRepository_GetNode_NotFound(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured (set COORDINATOR_TEST_DB_HOST)")
	}
	repo := NewNodeRepository(testClient)
	if _, err := repo.GetNode(context.Background(), "acc://does-not-exist.acme"); err != ErrNodeNotFound {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestNodeRepository_ListActiveNodesByWorkflow_ExcludesBusy(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured (set COORDINATOR_TEST_DB_HOST)")
	}
	repo := NewNodeRepository(testClient)
	ctx := context.Background()

	idle := sampleNode("acc://node-idle.acme")
	if err := repo.UpsertNode(ctx, idle); err != nil {
		t.Fatalf("UpsertNode(idle) failed: %v", err)
	}
	busy := sampleNode("acc://node-busy.acme")
	busy.ActiveTaskID = 42
	if err := repo.UpsertNode(ctx, busy); err != nil {
		t.Fatalf("UpsertNode(busy) failed: %v", err)
	}

	got, err := repo.ListActiveNodesByWorkflow(ctx, tasks.WorkflowBalanced, 50)
	if err != nil {
		t.Fatalf("ListActiveNodesByWorkflow failed: %v", err)
	}
	for _, n := range got {
		if n.Owner == busy.Owner {
			t.Error("busy node should not be returned as a claim candidate")
		}
	}
}

func TestNodeRepository_VaultRoundTrip(t *testing.T) {
	if testClient == nil {
		t.Skip("test database not configured (set COORDINATOR_TEST_DB_HOST)")
	}
	repo := NewNodeRepository(testClient)
	ctx := context.Background()

	node := sampleNode("acc://node-vaults.acme")
	if err := repo.UpsertNode(ctx, node); err != nil {
		t.Fatalf("UpsertNode failed: %v", err)
	}

	stake := &economy.StakeVault{Owner: node.Owner, Total: 5000, PendingSlashAmount: 0}
	if err := repo.UpsertStakeVault(ctx, node.Owner, stake); err != nil {
		t.Fatalf("UpsertStakeVault failed: %v", err)
	}
	gotStake, err := repo.GetStakeVault(ctx, node.Owner)
	if err != nil {
		t.Fatalf("GetStakeVault failed: %v", err)
	}
	if gotStake.Total != stake.Total {
		t.Errorf("expected total %d, got %d", stake.Total, gotStake.Total)
	}

	reward := &economy.RewardVault{Balance: 100, TotalAccrued: 200, TotalDistributed: 100, SlashPool: 0}
	if err := repo.UpsertRewardVault(ctx, node.Owner, reward); err != nil {
		t.Fatalf("UpsertRewardVault failed: %v", err)
	}
	gotReward, err := repo.GetRewardVault(ctx, node.Owner)
	if err != nil {
		t.Fatalf("GetRewardVault failed: %v", err)
	}
	if gotReward.Balance != reward.Balance {
		t.Errorf("expected balance %d, got %d", reward.Balance, gotReward.Balance)
	}
}
