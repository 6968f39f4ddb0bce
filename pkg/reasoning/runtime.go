// Copyright 2025 Certen Protocol

package reasoning

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/intentmesh/coordinator/pkg/errs"
	"github.com/intentmesh/coordinator/pkg/metrics"
)

// confidenceBaseline is the starting confidence per tier, before penalties.
var confidenceBaseline = map[ModelTier]int{
	Tier7B:  6000,
	Tier13B: 7500,
	Tier70B: 8500,
	TierAPI: 9500,
}

// uncertaintyPhrases cost 500bps each occurrence, case-insensitive.
var uncertaintyPhrases = []string{"i'm not sure", "i don't know", "possibly", "might be"}

const (
	defaultTemperature  = 0.1
	defaultSeed         = 42
	defaultInferenceTimeout = 120 * time.Second
	defaultBatchSize    = 8
	defaultBatchTimeout = 100 * time.Millisecond
	defaultLocalConcurrency = 4
	defaultCloudConcurrency = 10
)

// InferenceFunc performs one model call for a given tier and returns its
// raw text result and the model identifier that produced it.
type InferenceFunc func(ctx context.Context, intent string, params Params) (result string, model string, tokens int, err error)

// Params carries caller-supplied determinism overrides; local tiers ignore
// these in favor of the fixed temperature/seed, cloud tiers honor them.
type Params struct {
	Temperature float64
	Seed        int64
}

// Request is one inference request routed through the tier matrix.
type Request struct {
	TaskID     uint64
	Intent     string
	Workflow   Workflow
	Complexity int
	Params     Params
}

// Response is the inference contract's output.
type Response struct {
	Result        string
	ResultHash    [32]byte
	Model         string
	Tier          ModelTier
	Tokens        int
	LatencyMs     int64
	CacheHit      bool
	ConfidenceBps int
	TraceHash     [32]byte
}

// Config configures a Runtime.
type Config struct {
	Registry          *Registry
	InferenceTimeout  time.Duration
	BatchSize         int
	BatchTimeout      time.Duration
	LocalConcurrency  int
	CloudConcurrency  int
	Logger            *log.Logger
}

func DefaultConfig() *Config {
	return &Config{
		Registry:         NewRegistry(),
		InferenceTimeout: defaultInferenceTimeout,
		BatchSize:        defaultBatchSize,
		BatchTimeout:     defaultBatchTimeout,
		LocalConcurrency: defaultLocalConcurrency,
		CloudConcurrency: defaultCloudConcurrency,
		Logger:           log.New(os.Stdout, "[Reasoning] ", log.LstdFlags),
	}
}

// Runtime routes requests to tier-specific inference functions and applies
// the confidence-scoring contract.
type Runtime struct {
	cfg        *Config
	logger     *log.Logger
	registry   *Registry
	mu         sync.RWMutex
	inferFuncs map[ModelTier]InferenceFunc
	sem        map[ModelTier]chan struct{}
	metrics    *metrics.Registry
}

// SetMetrics attaches a metrics registry routing decisions and inference
// latency are reported against. Optional; nil makes observations a no-op.
func (rt *Runtime) SetMetrics(m *metrics.Registry) {
	rt.metrics = m
}

func NewRuntime(cfg *Config) *Runtime {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[Reasoning] ", log.LstdFlags)
	}
	rt := &Runtime{
		cfg:        cfg,
		logger:     cfg.Logger,
		registry:   cfg.Registry,
		inferFuncs: make(map[ModelTier]InferenceFunc),
		sem:        make(map[ModelTier]chan struct{}),
	}
	for _, tier := range fallbackOrder {
		concurrency := cfg.LocalConcurrency
		if tier == TierAPI {
			concurrency = cfg.CloudConcurrency
		}
		rt.sem[tier] = make(chan struct{}, concurrency)
	}
	return rt
}

// Bind registers the inference function backing a tier.
func (rt *Runtime) Bind(tier ModelTier, fn InferenceFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.inferFuncs[tier] = fn
}

// Process routes and executes one inference request per the §4.4 contract.
func (rt *Runtime) Process(ctx context.Context, req Request) (Response, error) {
	const op = "reasoning.Process"

	tier := rt.registry.SelectTier(req.Workflow, req.Complexity)
	rt.metrics.ObserveRoutingDecision(string(req.Workflow), string(tier))

	rt.mu.RLock()
	fn, ok := rt.inferFuncs[tier]
	rt.mu.RUnlock()
	if !ok {
		return Response{}, errs.BackendDegradedf(op, "no inference function bound for tier %s", tier)
	}

	params := req.Params
	if tier != TierAPI {
		params = Params{Temperature: defaultTemperature, Seed: defaultSeed}
	}

	timeout := rt.cfg.InferenceTimeout
	if timeout <= 0 {
		timeout = defaultInferenceTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sem := rt.sem[tier]
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-callCtx.Done():
		return Response{}, errs.Timeoutf(op, "inference slot acquisition timed out for tier %s", tier)
	}

	start := time.Now()
	result, model, tokens, err := fn(callCtx, req.Intent, params)
	latency := time.Since(start)
	if err != nil {
		if callCtx.Err() != nil {
			return Response{}, errs.Timeoutf(op, "inference timed out for tier %s: %v", tier, err)
		}
		return Response{}, errs.BackendDegradedf(op, "inference failed for tier %s: %v", tier, err)
	}

	rt.metrics.ObserveInferenceLatency(string(tier), float64(latency.Milliseconds()))

	resultHash := sha256.Sum256([]byte(result))
	traceHash := traceHashOf(req.Intent, model, result, req.TaskID)
	confidence := confidenceFor(tier, result)

	return Response{
		Result:        result,
		ResultHash:    resultHash,
		Model:         model,
		Tier:          tier,
		Tokens:        tokens,
		LatencyMs:     latency.Milliseconds(),
		ConfidenceBps: confidence,
		TraceHash:     traceHash,
	}, nil
}

func traceHashOf(intent, model, result string, taskID uint64) [32]byte {
	var idBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], taskID)
	h := sha256.New()
	h.Write([]byte(intent))
	h.Write([]byte(model))
	h.Write([]byte(result))
	h.Write(idBuf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func confidenceFor(tier ModelTier, result string) int {
	conf := confidenceBaseline[tier]
	if len(result) < 50 {
		conf -= 1000
	}
	lower := strings.ToLower(result)
	for _, phrase := range uncertaintyPhrases {
		conf -= 500 * strings.Count(lower, phrase)
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 10000 {
		conf = 10000
	}
	return conf
}

// ProcessBatch submits requests for concurrent inference, up to BatchSize
// at a time, returning results in input order. Requests beyond BatchSize
// proceed in subsequent waves rather than blocking on a single cap.
func (rt *Runtime) ProcessBatch(ctx context.Context, reqs []Request) ([]Response, []error) {
	n := len(reqs)
	responses := make([]Response, n)
	errsOut := make([]error, n)

	batchSize := rt.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				responses[i], errsOut[i] = rt.Process(ctx, reqs[i])
			}(i)
		}
		wg.Wait()
	}

	return responses, errsOut
}
