// Package recorder persists bus events into durable stores. It subscribes
// to the event kinds that carry records (actions, rug detections, state
// transitions, anomalies) and writes each to its store. Persistence is
// best-effort: a failed write is logged and never stalls the pipeline.
package recorder

import (
	"context"
	"errors"
	"log"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/eventbus"
	"launch-sentinel/internal/storage"
)

// Options for creating a Recorder. Any nil store disables persistence for
// that event kind.
type Options struct {
	Actions     storage.ActionRecordStore
	Rugs        storage.RugDetectionStore
	Transitions storage.StateTransitionStore
	Anomalies   storage.AnomalyStore

	Logger *log.Logger
}

// Recorder consumes record-bearing events from the bus and writes them to
// storage.
type Recorder struct {
	sub  *eventbus.Subscription
	opts Options

	logger *log.Logger
	wg     sync.WaitGroup
}

// New subscribes to the bus and starts the persistence loop. The loop
// stops once the bus closes and the queue is drained; Wait blocks until
// then. Cancelling ctx does not abandon queued events: close the bus to
// shut down.
func New(ctx context.Context, bus *eventbus.Bus, opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := &Recorder{
		sub: bus.Subscribe(
			domain.EventActionExecuted,
			domain.EventRugDetected,
			domain.EventStateTransition,
			domain.EventAnomalyDetected,
		),
		opts:   opts,
		logger: logger,
	}

	r.wg.Add(1)
	go r.run(context.WithoutCancel(ctx))
	return r
}

// Wait blocks until the persistence loop has drained and exited.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()

	if r.sub == nil {
		return
	}

	// Exit on channel close only. Shutdown cancels the daemon context
	// before closing the bus; exiting on ctx.Done here would drop the
	// records still queued, so the writes run on a cancel-free context.
	for ev := range r.sub.Events() {
		r.persist(ctx, ev)
	}
}

// persist routes one event to its store. Duplicate-key errors are expected
// on replays and ignored.
func (r *Recorder) persist(ctx context.Context, ev domain.Event) {
	var err error

	switch ev.Kind {
	case domain.EventActionExecuted:
		payload, ok := ev.Payload.(domain.ActionExecutedPayload)
		if !ok || r.opts.Actions == nil {
			return
		}
		action := payload.Action
		err = r.opts.Actions.Insert(ctx, &action)

	case domain.EventRugDetected:
		payload, ok := ev.Payload.(domain.RugDetectedPayload)
		if !ok || r.opts.Rugs == nil {
			return
		}
		detection := payload.Detection
		err = r.opts.Rugs.Insert(ctx, &detection)

	case domain.EventStateTransition:
		payload, ok := ev.Payload.(domain.StateTransitionPayload)
		if !ok || r.opts.Transitions == nil {
			return
		}
		transition := payload.Transition
		err = r.opts.Transitions.Insert(ctx, &transition)

	case domain.EventAnomalyDetected:
		payload, ok := ev.Payload.(domain.AnomalyDetectedPayload)
		if !ok || r.opts.Anomalies == nil {
			return
		}
		report := payload.Report
		err = r.opts.Anomalies.InsertBulk(ctx, []*domain.AnomalyReport{&report})

	default:
		return
	}

	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		r.logger.Printf("[recorder] persist %s for %s: %v", ev.Kind, ev.SubjectKey, err)
	}
}
