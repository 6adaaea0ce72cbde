// Package oracle implements the reasoning oracle gateway: one checkpoint for
// every external inference call, with a fingerprint cache, a bounded per-cycle
// budget and a deterministic local fallback. Pipeline stages never talk to a
// provider client directly.
package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/internal/infrastructure/monitoring"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// Gateway implements service.OracleGateway. Cached entries are shared across
// cycles and tenants: the fingerprint covers model, stage and full prompt, so
// a hit is always an identical question.
type Gateway struct {
	oracle  service.ReasoningOracle
	cache   *gocache.Cache
	cfg     *config.OracleConfig
	logger  logger.Logger
	metrics *monitoring.Metrics
}

// NewGateway creates the oracle gateway.
func NewGateway(oracle service.ReasoningOracle, cfg *config.OracleConfig, log logger.Logger, metrics *monitoring.Metrics) *Gateway {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = constants.OracleCacheTTL
	}
	return &Gateway{
		oracle:  oracle,
		cache:   gocache.New(ttl, 2*ttl),
		cfg:     cfg,
		logger:  log,
		metrics: metrics,
	}
}

var _ service.OracleGateway = (*Gateway)(nil)

// fingerprint derives the cache key from model, stage and prompt.
func (g *Gateway) fingerprint(stage constants.Stage, prompt string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s", g.cfg.Model, stage, prompt)
	return hex.EncodeToString(h.Sum(nil))
}

// Generate resolves a request through cache, budget and oracle. Any oracle
// failure degrades to the request's deterministic fallback with APIUsed=false;
// the pipeline keeps running either way.
func (g *Gateway) Generate(ctx context.Context, session *service.OracleSession, req service.OracleRequest) (*service.OracleResponse, error) {
	prompt := req.Prompt
	if g.cfg.MaxPromptChars > 0 && len(prompt) > g.cfg.MaxPromptChars {
		g.logger.Warn(ctx, "Oracle prompt truncated",
			logger.String("stage", string(req.Stage)),
			logger.Int("original_chars", len(prompt)),
			logger.Int("max_chars", g.cfg.MaxPromptChars),
		)
		prompt = prompt[:g.cfg.MaxPromptChars]
	}

	key := g.fingerprint(req.Stage, prompt)

	if cached, ok := g.cache.Get(key); ok {
		session.CacheHits++
		resp := cached.(*service.OracleResponse)
		meta := resp.Meta
		meta.CacheHit = true
		meta.Timestamp = time.Now().UTC()
		if g.metrics != nil {
			g.metrics.RecordOracleCall(session.TenantID, req.Stage, "cache", 0)
		}
		g.logger.Debug(ctx, "Oracle cache hit",
			logger.String("stage", string(req.Stage)),
			logger.String("prompt_hash", meta.PromptHash),
		)
		return &service.OracleResponse{Result: resp.Result, Meta: meta}, nil
	}

	maxCalls := g.cfg.MaxCalls
	if maxCalls <= 0 {
		maxCalls = constants.OracleMaxCallsPerCycle
	}

	if !g.oracle.Available() {
		return g.fallback(ctx, session, req, key, nil)
	}
	if session.CallCount >= maxCalls {
		budgetErr := errors.ErrBudgetExceeded(session.CallCount, maxCalls)
		g.logger.Warn(ctx, "Oracle budget exceeded, using fallback",
			logger.String("stage", string(req.Stage)),
			logger.Int("calls_used", session.CallCount),
			logger.Int("limit", maxCalls),
		)
		return g.fallback(ctx, session, req, key, budgetErr)
	}

	session.CallCount++

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, meta, err := g.oracle.Infer(callCtx, req.Stage, prompt)
	latency := time.Since(start)

	if err != nil {
		g.logger.Warn(ctx, "Oracle call failed, using fallback",
			logger.String("stage", string(req.Stage)),
			logger.String("error", err.Error()),
			logger.Int64("latency_ms", latency.Milliseconds()),
		)
		return g.fallback(ctx, session, req, key, err)
	}

	meta.LatencyMS = latency.Milliseconds()
	meta.CacheHit = false
	meta.APIUsed = true
	meta.PromptHash = key[:16]
	meta.Timestamp = time.Now().UTC()

	resp := &service.OracleResponse{Result: result, Meta: meta}
	g.cache.SetDefault(key, resp)

	if g.metrics != nil {
		g.metrics.RecordOracleCall(session.TenantID, req.Stage, "api", latency)
	}
	g.logger.Debug(ctx, "Oracle call completed",
		logger.String("stage", string(req.Stage)),
		logger.String("model", meta.Model),
		logger.Int64("latency_ms", meta.LatencyMS),
		logger.Int("calls_used", session.CallCount),
	)
	return resp, nil
}

// fallback runs the request's local computation. The fallback itself failing
// is a hard error: stages always provide a total fallback function.
func (g *Gateway) fallback(ctx context.Context, session *service.OracleSession, req service.OracleRequest, key string, cause error) (*service.OracleResponse, error) {
	if req.Fallback == nil {
		if cause != nil {
			return nil, errors.ErrOracleError(req.Stage, cause)
		}
		return nil, errors.ErrOracleError(req.Stage, fmt.Errorf("no fallback configured"))
	}

	result, err := req.Fallback()
	if err != nil {
		return nil, errors.ErrOracleError(req.Stage, err)
	}

	if g.metrics != nil {
		g.metrics.RecordOracleCall(session.TenantID, req.Stage, "fallback", 0)
	}
	return &service.OracleResponse{
		Result: result,
		Meta: models.OracleMeta{
			Provider:   constants.OracleFallbackProvider,
			Model:      "local",
			LatencyMS:  0,
			CacheHit:   false,
			APIUsed:    false,
			PromptHash: key[:16],
			Timestamp:  time.Now().UTC(),
		},
	}, nil
}
