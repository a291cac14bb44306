// Package engine owns the brain: it bootstraps the database, wires the
// repositories and stage queues, runs the stage loops and accepts events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/config"
	"pngtuber-brain/internal/history"
	"pngtuber-brain/internal/llm"
	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/pipeline"
	"pngtuber-brain/internal/pronouns"
	"pngtuber-brain/internal/queue"
	"pngtuber-brain/internal/repository"
	"pngtuber-brain/internal/storage"
)

// Drop reasons reported to the Observer.
const (
	DropNotRunning = "not_running"
	DropIgnored    = "ignored"
)

var ErrShutdown = errors.New("engine: already shut down")

type Options struct {
	DBPath           string
	LockDir          string
	LockName         string
	LockTimeout      time.Duration
	BootstrapTimeout time.Duration
	IgnoreNames      []string

	PronounAPIURL     string
	PronounAPITimeout time.Duration
	PronounAPIRPS     float64

	// StageDeadline bounds one context's traversal; zero means the pipeline default.
	StageDeadline time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DBPath:            cfg.DBPath(),
		LockDir:           cfg.DBLockDir,
		LockName:          cfg.DBLockName,
		LockTimeout:       cfg.DBLockTimeout,
		BootstrapTimeout:  cfg.BootstrapLockTimeout,
		IgnoreNames:       cfg.IgnoreNames,
		PronounAPIURL:     cfg.PronounAPIURL,
		PronounAPITimeout: cfg.PronounAPITimeout,
		PronounAPIRPS:     cfg.PronounAPIRPS,
	}
}

// Observer receives engine, stage, lock and pronoun events. *metrics.Metrics
// implements it.
type Observer interface {
	pipeline.StageObserver
	storage.LockObserver
	repository.PronounObserver
	ObserveIngest(eventType string)
	ObserveDrop(reason string)
}

// Deps are the optional collaborators. Zero values are fine.
type Deps struct {
	Logger   *zap.Logger
	Output   pipeline.Output
	LLM      llm.Client
	Pronouns pronouns.Lookup // overrides the HTTP client built from Options
	Observer Observer
	// Cache is shared with the caller and left open by Shutdown. When nil the
	// engine creates its own and closes it on Shutdown.
	Cache *cache.Cache
}

type Engine struct {
	opts   Options
	deps   Deps
	logger *zap.Logger
	ignore map[string]struct{}
	now    func() time.Time

	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	store      *storage.Store
	cache      *cache.Cache
	contexts   *pipeline.ContextStore
	nicknames  *repository.NicknameRepository
	pronounDB  *repository.PronounRepository
	knowledge  *repository.KnowledgeRepository
	chat       *repository.ChatMessageRepository
	transcript *history.Transcript
	prompts    *history.Manager
	settings   storage.AppSettings

	identityQ *pipeline.IDQueue
	chatlogQ  *pipeline.IDQueue
	queues    []*pipeline.IDQueue
}

func New(opts Options, deps Deps) *Engine {
	ignore := make(map[string]struct{}, len(opts.IgnoreNames))
	for _, n := range opts.IgnoreNames {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			ignore[n] = struct{}{}
		}
	}
	if deps.Output == nil {
		deps.Output = pipeline.LogOutput{Logger: deps.Logger}
	}
	return &Engine{
		opts:   opts,
		deps:   deps,
		logger: logging.OrNop(deps.Logger).Named("engine"),
		ignore: ignore,
		now:    time.Now,
	}
}

// Start bootstraps storage and launches every stage loop. A second call is a
// no-op. On error nothing is left running and Start may be retried.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrShutdown
	}
	if e.started {
		return nil
	}

	store := storage.New(storage.Options{
		Path:        e.opts.DBPath,
		LockDir:     e.opts.LockDir,
		LockName:    e.opts.LockName,
		LockTimeout: e.opts.LockTimeout,
		Logger:      e.deps.Logger,
		Observer:    e.lockObserver(),
	})
	bootTimeout := e.opts.BootstrapTimeout
	if bootTimeout <= 0 {
		bootTimeout = 5 * time.Second
	}
	if err := store.Bootstrap(ctx, bootTimeout); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	settings, err := store.Settings(ctx)
	if err != nil {
		e.logger.Warn("settings unavailable, using defaults", zap.Error(err))
		settings = storage.DefaultSettings()
	}
	e.settings = settings
	e.store = store
	e.wire(settings)

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	for _, s := range e.stages() {
		g.Go(func() error { return s.Run(gctx) })
	}
	e.cancel = cancel
	e.group = g
	e.started = true

	n := e.knowledge.Refresh(ctx)
	e.logger.Info("engine started",
		zap.String("db", store.Path()), zap.String("version", settings.Version), zap.Int("facts", n))
	return nil
}

func (e *Engine) wire(settings storage.AppSettings) {
	e.cache = e.deps.Cache
	if e.cache == nil {
		e.cache = cache.New(cache.DefaultTTL)
	}
	e.contexts = pipeline.NewContextStore(e.cache)

	remote := e.deps.Pronouns
	if remote == nil && e.opts.PronounAPIURL != "" {
		remote = pronouns.NewAlejoClient(e.opts.PronounAPIURL, e.opts.PronounAPITimeout, e.opts.PronounAPIRPS, e.deps.Logger)
	}

	e.nicknames = repository.NewNicknameRepository(e.cache, e.store, e.deps.Logger)
	e.pronounDB = repository.NewPronounRepository(e.cache, e.store, remote, e.deps.Logger)
	if e.deps.Observer != nil {
		e.pronounDB.SetObserver(e.deps.Observer)
	}
	e.knowledge = repository.NewKnowledgeRepository(e.cache, e.store, e.deps.Logger)
	e.chat = repository.NewChatMessageRepository(e.store, e.deps.Logger)
	e.transcript = history.NewTranscript(settings.MaxChatHistory, e.cache)
	e.prompts = history.NewManager(settings.MaxPromptHistory)
}

// stages builds the topology:
//
//	identity -> router -> {command, knowledge} -> response
//	chatlog (parallel, from the raw context)
func (e *Engine) stages() []*pipeline.Stage {
	identityQ := queue.New[string]()
	routerQ := queue.New[string]()
	commandQ := queue.New[string]()
	knowledgeQ := queue.New[string]()
	responseQ := queue.New[string]()
	chatlogQ := queue.New[string]()
	e.identityQ, e.chatlogQ = identityQ, chatlogQ
	e.queues = []*pipeline.IDQueue{identityQ, routerQ, commandQ, knowledgeQ, responseQ, chatlogQ}

	var asker pipeline.Asker
	if e.deps.LLM != nil {
		asker = pipeline.NewAssistant(e.deps.LLM, e.knowledge, e.transcript, e.prompts)
	}

	var opts []pipeline.StageOption
	if e.deps.Observer != nil {
		opts = append(opts, pipeline.WithObserver(e.deps.Observer))
	}
	if e.opts.StageDeadline > 0 {
		opts = append(opts, pipeline.WithDeadline(e.opts.StageDeadline))
	}
	stage := func(in *pipeline.IDQueue, h pipeline.Handler) *pipeline.Stage {
		return pipeline.NewStage(in, h, e.contexts, e.deps.Logger, opts...)
	}

	return []*pipeline.Stage{
		stage(identityQ, pipeline.NewIdentity(e.nicknames, e.pronounDB, routerQ, e.deps.Logger)),
		stage(routerQ, pipeline.NewRouter(commandQ, knowledgeQ)),
		stage(commandQ, pipeline.NewCommandProcessor(pipeline.CommandDeps{
			Nicknames:  e.nicknames,
			Facts:      e.knowledge,
			Transcript: e.transcript,
			Prompts:    e.prompts,
			Asker:      asker,
			Version:    e.settings.Version,
			Next:       responseQ,
			Logger:     e.deps.Logger,
		})),
		stage(knowledgeQ, pipeline.NewKnowledgeScanner(e.knowledge, responseQ, e.deps.Logger)),
		stage(responseQ, pipeline.NewResponseEmitter(e.deps.Output, e.transcript)),
		stage(chatlogQ, pipeline.NewChatPersistence(e.chat, e.deps.Logger)),
	}
}

// Shutdown cancels every stage loop and waits for them to return. Events
// still queued are abandoned. An engine-owned cache is closed.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	started := e.started
	e.mu.Unlock()
	if !started {
		return
	}

	e.cancel()
	if err := e.group.Wait(); err != nil {
		e.logger.Error("stage exited with error", zap.Error(err))
	}
	for _, q := range e.queues {
		q.Close()
	}
	if e.deps.Cache == nil {
		e.cache.Close()
	}
	e.logger.Info("engine stopped")
}

// Ingest accepts one host event and returns its request ID. It never waits
// for the pipeline. The event is dropped when the engine is not running or
// when the display name is ignored.
func (e *Engine) Ingest(args map[string]any) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started || e.stopped {
		e.observeDrop(DropNotRunning)
		return "", false
	}
	if name, ok := args[pipeline.ArgUser].(string); ok {
		if _, skip := e.ignore[strings.ToLower(strings.TrimSpace(name))]; skip {
			e.observeDrop(DropIgnored)
			return "", false
		}
	}

	now := e.now()
	raw := maps.Clone(args)
	if raw == nil {
		raw = map[string]any{}
	}
	if _, ok := raw[pipeline.ArgTimestamp]; !ok {
		raw[pipeline.ArgTimestamp] = now.UTC().Format(time.RFC3339)
	}
	id := uuid.NewString()
	rc := pipeline.NewRequestContext(id, now, raw)
	e.contexts.Save(rc)
	e.identityQ.Push(id)
	e.chatlogQ.Push(id)

	if e.deps.Observer != nil {
		e.deps.Observer.ObserveIngest(string(rc.EventType))
	}
	return id, true
}

// Running reports whether Start succeeded and Shutdown has not been called.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started && !e.stopped
}

// Context returns the current state of an in-flight request.
func (e *Engine) Context(id string) (pipeline.RequestContext, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.contexts == nil {
		return pipeline.RequestContext{}, false
	}
	return e.contexts.Fetch(id)
}

// Accessors below are valid after a successful Start.

func (e *Engine) Store() *storage.Store { return e.store }
func (e *Engine) Nicknames() *repository.NicknameRepository { return e.nicknames }
func (e *Engine) Pronouns() *repository.PronounRepository { return e.pronounDB }
func (e *Engine) Knowledge() *repository.KnowledgeRepository { return e.knowledge }
func (e *Engine) Chat() *repository.ChatMessageRepository { return e.chat }
func (e *Engine) Transcript() *history.Transcript { return e.transcript }
func (e *Engine) Settings() storage.AppSettings { return e.settings }

func (e *Engine) lockObserver() storage.LockObserver {
	if e.deps.Observer == nil {
		return nil
	}
	return e.deps.Observer
}

func (e *Engine) observeDrop(reason string) {
	if e.deps.Observer != nil {
		e.deps.Observer.ObserveDrop(reason)
	}
}
