package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/queue"
)

// DefaultDeadline bounds the whole traversal of one context, measured from
// its creation.
const DefaultDeadline = 60 * time.Second

// Stage outcomes reported to a StageObserver.
const (
	OutcomeOK      = "ok"
	OutcomeMissing = "missing"
	OutcomeExpired = "expired"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
)

type IDQueue = queue.Queue[string]

// Result tells the runner what to do with a handled context.
type Result struct {
	Save bool
	Next []*IDQueue
}

func forward(save bool, next ...*IDQueue) Result {
	return Result{Save: save, Next: next}
}

// Handler is the per-stage logic. rc is the stage's private copy.
type Handler interface {
	Name() string
	Handle(ctx context.Context, rc *RequestContext) (Result, error)
}

type StageObserver interface {
	ObserveStage(stage, outcome string)
}

// Stage runs a Handler over every ID arriving on its inbound queue.
type Stage struct {
	in       *IDQueue
	handler  Handler
	contexts *ContextStore
	logger   *zap.Logger
	observer StageObserver
	deadline time.Duration
	now      func() time.Time
}

type StageOption func(*Stage)

func WithObserver(o StageObserver) StageOption { return func(s *Stage) { s.observer = o } }
func WithDeadline(d time.Duration) StageOption { return func(s *Stage) { s.deadline = d } }

func NewStage(in *IDQueue, h Handler, contexts *ContextStore, logger *zap.Logger, opts ...StageOption) *Stage {
	s := &Stage{
		in:       in,
		handler:  h,
		contexts: contexts,
		logger:   logging.OrNop(logger).Named(h.Name()),
		deadline: DefaultDeadline,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Stage) Name() string { return s.handler.Name() }

// Run blocks until ctx is cancelled. An ID already being processed is
// finished before Run returns; no new ID is started after cancellation.
func (s *Stage) Run(ctx context.Context) error {
	s.logger.Info("stage started")
	defer s.logger.Info("stage stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.in.Ready():
		}
		for _, id := range s.in.Drain() {
			if ctx.Err() != nil {
				return nil
			}
			s.processOne(ctx, id)
		}
	}
}

func (s *Stage) processOne(ctx context.Context, id string) {
	outcome := OutcomeOK
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomePanic
			s.logger.Error("stage panicked", zap.String("request_id", id),
				zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
		s.observe(outcome)
	}()

	rc, ok := s.contexts.Fetch(id)
	if !ok {
		outcome = OutcomeMissing
		return
	}

	deadline := rc.CreatedAt.Add(s.deadline)
	if !s.now().Before(deadline) {
		outcome = OutcomeExpired
		s.logger.Warn("context exceeded pipeline deadline, dropped",
			zap.String("request_id", id), zap.Duration("deadline", s.deadline))
		return
	}

	// in-flight work is allowed to finish after shutdown, within its deadline
	itemCtx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
	defer cancel()

	res, err := s.handler.Handle(itemCtx, &rc)
	if err != nil {
		outcome = OutcomeError
		s.logger.Error("stage failed", zap.String("request_id", id), zap.Error(err))
		return
	}
	if res.Save {
		s.contexts.Save(rc)
	}
	for _, q := range res.Next {
		if q != nil {
			q.Push(rc.ID)
		}
	}
}

func (s *Stage) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveStage(s.handler.Name(), outcome)
	}
}
