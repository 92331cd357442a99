package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lifectx/engine/pkg/conversation"
	"github.com/lifectx/engine/pkg/extraction"
	"github.com/lifectx/engine/pkg/graph"
	"github.com/lifectx/engine/pkg/llm"
	"github.com/lifectx/engine/pkg/metrics"
	"github.com/lifectx/engine/pkg/rank"
	"github.com/lifectx/engine/pkg/store"
	"github.com/lifectx/engine/pkg/trace"
)

// ErrDocumentAlreadyProcessed is returned when a document's content hash is
// already recorded, so extraction would only repeat known candidates.
var ErrDocumentAlreadyProcessed = errors.New("document already processed")

// Onboarding fallback thresholds: when document extraction fails during
// onboarding, coverage is judged from previously collected counts instead
// of blocking the user.
const (
	minOnboardingDomains  = 2
	minOnboardingEntities = 5
)

// DocumentTracker records which documents have been through extraction.
type DocumentTracker interface {
	IsDocumentProcessed(ctx context.Context, hash string) (bool, error)
	MarkDocumentProcessed(ctx context.Context, hash, source string, entityCount int) error
}

// Engine is the life-context memory engine facade.
type Engine struct {
	cfg     Config
	logger  *zap.Logger
	metrics metrics.Collector
	llm     llm.Client

	db       *store.SQLiteStore
	entities store.EntityStore
	memories store.MemoryStore
	threads  store.ThreadStore
	tracker  DocumentTracker

	cooccur       *store.CoOccurrenceBuilder
	compactor     *conversation.Compactor
	docExtractor  *extraction.DocumentExtractor
	turnExtractor *extraction.TurnExtractor
	traverser     *graph.Traverser

	registry *Registry
	tracer   trace.Exporter
}

// Option customizes engine construction, mainly so tests can substitute
// deterministic fakes.
type Option func(*Engine)

// WithLogger injects a logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics injects a metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLLM injects the language-model client.
func WithLLM(c llm.Client) Option {
	return func(e *Engine) { e.llm = c }
}

// WithRegistry injects the provider registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithTraceExporter injects a trace exporter.
func WithTraceExporter(t trace.Exporter) Option {
	return func(e *Engine) { e.tracer = t }
}

// New creates an engine from configuration.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg.applyDefaults()

	e := &Engine{
		cfg:      cfg,
		logger:   zap.NewNop(),
		metrics:  metrics.NewNoopCollector(),
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.llm == nil {
		e.llm = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}, e.logger)
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	e.db = db
	e.entities = db
	e.memories = db
	e.threads = db
	e.tracker = db

	e.cooccur = store.NewCoOccurrenceBuilder(e.entities)
	e.compactor = conversation.NewCompactor(e.llm, conversation.CompactorConfig{
		MinRecent:         cfg.MinRecentMessages,
		TargetTokenBudget: cfg.TargetTokenBudget,
		HardTokenBudget:   cfg.HardTokenBudget,
	}, e.logger)
	e.docExtractor = extraction.NewDocumentExtractor(e.llm, e.logger)
	e.turnExtractor = extraction.NewTurnExtractor(e.llm, extraction.TurnExtractorConfig{
		MinUserTextLength:   cfg.MinUserTextLength,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}, e.logger)
	e.traverser = graph.NewTraverser(e.entities)

	if e.tracer == nil && cfg.TracePath != "" {
		exporter, err := trace.NewFileExporter(cfg.TracePath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open trace exporter: %w", err)
		}
		e.tracer = exporter
	}

	return e, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	if e.tracer != nil {
		_ = e.tracer.Close()
	}
	return e.db.Close()
}

// Store exposes the underlying store for host-level operations
// (confirmation UIs listing entities, explicit deletes).
func (e *Engine) Store() *store.SQLiteStore {
	return e.db
}

// ExtractDocument runs whole-document extraction. Already-processed
// documents short-circuit with ErrDocumentAlreadyProcessed. Model failures
// are returned classified; callers fall back to OnboardingComplete.
func (e *Engine) ExtractDocument(ctx context.Context, text, filenameHint string) (*extraction.DocumentExtraction, error) {
	op := metrics.OpExtractDocument
	t := e.startOp(op)
	start := time.Now()

	hash := store.HashDocument(text)
	processed, err := e.tracker.IsDocumentProcessed(ctx, hash)
	if err != nil {
		e.logger.Warn("document dedup check failed", zap.Error(err))
	} else if processed {
		t.end(ctx, nil)
		return nil, ErrDocumentAlreadyProcessed
	}

	st := t.span("model")
	result, err := e.docExtractor.Extract(ctx, text, filenameHint)
	st.finish(err, nil)
	if err != nil {
		e.metrics.RecordError(ctx, op, string(Classify(err)))
		t.end(ctx, err)
		return nil, opError(op, err)
	}

	if err := e.tracker.MarkDocumentProcessed(ctx, hash, filenameHint, len(result.Entities)); err != nil {
		e.logger.Warn("failed to mark document processed", zap.Error(err))
	}

	e.metrics.RecordOperation(ctx, op, "success", time.Since(start).Milliseconds())
	t.end(ctx, nil)
	return result, nil
}

// ExtractTurn runs conversational-turn extraction against current store
// state. Fail-closed: on any failure the candidate lists are empty.
func (e *Engine) ExtractTurn(ctx context.Context, userText, assistantText string) (*extraction.TurnExtraction, error) {
	op := metrics.OpExtractTurn
	t := e.startOp(op)
	start := time.Now()

	existingEntities, err := e.entities.ListEntities(ctx)
	if err != nil {
		t.end(ctx, err)
		return nil, opError(op, err)
	}
	existingMemories, err := e.memories.ListMemories(ctx, 50)
	if err != nil {
		t.end(ctx, err)
		return nil, opError(op, err)
	}

	st := t.span("model")
	result := e.turnExtractor.Extract(ctx, userText, assistantText, existingEntities, existingMemories)
	st.finish(nil, map[string]int64{
		"entityCandidates": int64(len(result.Entities)),
		"memoryCandidates": int64(len(result.Memories)),
	})

	e.metrics.RecordOperation(ctx, op, "success", time.Since(start).Milliseconds())
	t.end(ctx, nil)
	return result, nil
}

// RelatedEntities returns the induced subgraph reachable from startID
// within the configured traversal depth.
func (e *Engine) RelatedEntities(ctx context.Context, startID string) (*graph.Subgraph, error) {
	sub, err := e.traverser.Traverse(ctx, startID, e.cfg.TraversalDepth)
	if err != nil {
		return nil, opError("related_entities", err)
	}
	return sub, nil
}

// RelevantEntities ranks stored entities against a query and returns the
// top candidates worth prompt space.
func (e *Engine) RelevantEntities(ctx context.Context, query string) ([]rank.Scored, error) {
	entities, err := e.entities.ListEntities(ctx)
	if err != nil {
		return nil, opError("relevant_entities", err)
	}
	return rank.TopRelevant(entities, query, e.cfg.TopEntities, time.Now()), nil
}

// OnboardingComplete is the cold-start fallback: when document extraction
// fails, completion is judged from what has been collected so far.
func (e *Engine) OnboardingComplete(ctx context.Context) (bool, error) {
	entities, err := e.entities.ListEntities(ctx)
	if err != nil {
		return false, opError("onboarding_complete", err)
	}

	domains := make(map[store.Domain]bool)
	for _, entity := range entities {
		if entity.Domain != "" {
			domains[entity.Domain] = true
		}
	}

	return len(domains) >= minOnboardingDomains && len(entities) >= minOnboardingEntities, nil
}
