// Copyright 2025 Certen Protocol

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intentmesh/coordinator/pkg/config"
	"github.com/intentmesh/coordinator/pkg/contentstore"
	"github.com/intentmesh/coordinator/pkg/database"
	"github.com/intentmesh/coordinator/pkg/economy"
	"github.com/intentmesh/coordinator/pkg/firestore"
	"github.com/intentmesh/coordinator/pkg/knowledge"
	"github.com/intentmesh/coordinator/pkg/kvdb"
	"github.com/intentmesh/coordinator/pkg/metrics"
	"github.com/intentmesh/coordinator/pkg/reasoning"
	"github.com/intentmesh/coordinator/pkg/semcache"
	"github.com/intentmesh/coordinator/pkg/tasks"
	"github.com/intentmesh/coordinator/pkg/truthdiscovery"
	"github.com/intentmesh/coordinator/pkg/verification"
	"github.com/intentmesh/coordinator/pkg/zkproof"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("Starting intent reasoning network coordinator")

	dev := flag.Bool("dev", false, "run with relaxed development configuration validation")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}
	if *dev {
		if err := cfg.ValidateForDevelopment(); err != nil {
			log.Fatal("development configuration invalid:", err)
		}
	} else {
		if err := cfg.Validate(); err != nil {
			log.Fatal("configuration invalid:", err)
		}
	}

	overrides, err := config.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		log.Fatal("failed to load overrides:", err)
	}
	log.Printf("loaded %d proof-policy overrides, %d routing-matrix overrides", len(overrides.ProofPolicy), len(overrides.RoutingMatrix))

	metricsRegistry := metrics.NewRegistry()
	metricsRegistry.MustRegister(prometheus.DefaultRegisterer)
	go serveMetrics(cfg.MetricsAddr)

	// Durable storage: Postgres for Task/Node/Challenge/economy records,
	// the embedded KV store for the task state machine's restart recovery.
	dbClient, err := database.NewClient(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	if err := dbClient.MigrateUp(context.Background()); err != nil {
		log.Fatalf("failed to run database migrations: %v", err)
	}
	taskRepo := database.NewTaskRepository(dbClient)
	nodeRepo := database.NewNodeRepository(dbClient)
	_ = taskRepo
	_ = nodeRepo

	if err := os.MkdirAll(cfg.KVDataDir, 0o755); err != nil {
		log.Fatalf("failed to create kv data dir: %v", err)
	}
	kvStore, err := dbm.NewGoLevelDB("coordinator", cfg.KVDataDir)
	if err != nil {
		log.Fatalf("failed to open embedded kv store: %v", err)
	}
	defer kvStore.Close()
	taskStore := tasks.NewStore(kvdb.NewKVAdapter(kvStore))
	taskStore.SetMetrics(metricsRegistry)

	// Knowledge graph (C2), content-addressed store (C1).
	graph := knowledge.NewGraph()
	var contentBackend contentstore.Backend
	if cfg.ContentStoreEndpoint != "" {
		contentBackend = contentstore.NewIPFSBackend(cfg.ContentStoreEndpoint)
	} else {
		contentBackend = contentstore.NewMemoryBackend()
	}
	store := contentstore.New(contentBackend)
	_ = store

	// Semantic cache (C3): local layer plus a Firestore-backed distributed
	// layer when enabled.
	var distributedCache semcache.DistributedLayer
	if cfg.FirestoreEnabled {
		fsClient, err := firestore.NewClient(context.Background(), &firestore.ClientConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			Enabled:         true,
			Logger:          log.New(log.Writer(), "[Firestore] ", log.LstdFlags),
		})
		if err != nil {
			log.Printf("warning: firestore client unavailable, distributed cache disabled: %v", err)
		} else {
			distributedCache = firestore.NewCacheLayer(context.Background(), fsClient)
		}
	}
	cache := semcache.New(distributedCache)
	cache.SetMetrics(metricsRegistry)

	// Reasoning router + runtime (C4).
	reasoningCfg := reasoning.DefaultConfig()
	runtime := reasoning.NewRuntime(reasoningCfg)
	runtime.SetMetrics(metricsRegistry)
	runtime.Bind(reasoning.Tier7B, reasoning.LocalEndpoint(cfg.Local7BEndpoint, "llama3-7b", nil))
	runtime.Bind(reasoning.Tier13B, reasoning.LocalEndpoint(cfg.Local13BEndpoint, "llama3-13b", nil))
	runtime.Bind(reasoning.Tier70B, reasoning.LocalEndpoint(cfg.Local70BEndpoint, "llama3-70b", nil))
	if cfg.APIEndpoint != "" {
		runtime.Bind(reasoning.TierAPI, reasoning.APIEndpoint(cfg.APIEndpoint, cfg.APIKey, "gpt-frontier", cfg.MaxInputTokens, nil))
	}

	// Verification (C5): knowledge-graph scoring plus a cross-validator
	// backed by the same reasoning runtime.
	crossValidator := verification.NewReasoningCrossValidator(runtime)
	verificationCfg := verification.DefaultConfig(graph)
	verificationCfg.CrossValidators = []verification.CrossValidator{crossValidator}
	scorer := verification.NewScorer(verificationCfg)
	_ = scorer

	aggregator := truthdiscovery.NewAggregator(truthdiscovery.DefaultConfig())
	_ = aggregator

	// ZK proof service (C6).
	proofLifecycle := zkproof.NewLifecycle()
	proofCache := zkproof.NewProofCache(cfg.ProofCacheSize)
	proofCache.SetMetrics(metricsRegistry)
	prover := zkproof.NewProver()
	_ = proofLifecycle
	_ = prover

	// Economy parameters (part of C7) feed UpdateDynamicStake/Multiplier
	// calls made from the task state machine's callers.
	economyCfg := economy.Config{
		StakeFloor:            cfg.StakeFloor,
		StakeCeiling:          cfg.StakeCeiling,
		HighPerfMultiplierBps: cfg.HighPerfMultiplierBps,
		LowPerfPenaltyBps:     cfg.LowPerfPenaltyBps,
		BaseRewardRateBps:     cfg.BaseRewardRateBps,
	}
	_ = economyCfg

	log.Printf("coordinator initialized: kv_dir=%s db=%s health_addr=%s", cfg.KVDataDir, cfg.DBName, cfg.HealthAddr)
	serveHealth(cfg.HealthAddr)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}

func serveHealth(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	log.Printf("health check listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("health server stopped: %v", err)
	}
}
