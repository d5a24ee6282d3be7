package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
	"github.com/danielpatrickdp/adaptive-signal/internal/notify"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
	"github.com/google/uuid"
)

// #region controller
// Controller is the engine's caller: it reads the current green index, runs
// the arbiter, writes the new index back, then records and publishes the
// decision. Ticks for the same intersection are serialized.
type Controller struct {
	arbiter   *arbiter.Arbiter
	greens    GreenStore
	recorder  Recorder  // optional
	publisher Publisher // optional

	layouts map[string]layout
	now     func() time.Time
	newID   func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a controller. recorder and publisher may be nil.
func New(arb *arbiter.Arbiter, greens GreenStore, recorder Recorder, publisher Publisher) *Controller {
	return &Controller{
		arbiter:   arb,
		greens:    greens,
		recorder:  recorder,
		publisher: publisher,
		layouts:   make(map[string]layout),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
		locks:     make(map[string]*sync.Mutex),
	}
}

type layout struct {
	lanes   int
	initial int
}

// Register records an intersection's configured width and the lane used when
// no usable green index is stored. Ticks for a registered intersection must
// carry exactly laneCount lanes. Unregistered intersections start at lane 0
// and accept any width.
func (c *Controller) Register(id string, laneCount, initialGreen int) {
	c.mu.Lock()
	c.layouts[id] = layout{lanes: laneCount, initial: initialGreen}
	c.mu.Unlock()
}

// Reconcile rewrites a stored green index that no longer fits the registered
// width, e.g. one left in Redis by an older layout. Unknown intersections and
// missing entries are left alone.
func (c *Controller) Reconcile(ctx context.Context, id string) error {
	lock := c.lock(id)
	lock.Lock()
	defer lock.Unlock()

	lay, known := c.layout(id)
	if !known {
		return nil
	}
	current, ok, err := c.CurrentGreen(ctx, id)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", id, err)
	}
	if !ok || lay.fits(current) {
		return nil
	}
	log.Printf("[%s] stored green %d outside %d lanes, resetting to lane %d", id, current, lay.lanes, lay.initial)
	if err := c.greens.SetCurrentGreen(ctx, id, lay.initial); err != nil {
		return fmt.Errorf("reconcile %s: %w", id, err)
	}
	return nil
}

// Arbiter returns the engine the controller runs.
func (c *Controller) Arbiter() *arbiter.Arbiter {
	return c.arbiter
}

// CurrentGreen reads an intersection's green index. ok is false when none is
// stored yet.
func (c *Controller) CurrentGreen(ctx context.Context, id string) (idx int, ok bool, err error) {
	idx, err = c.greens.CurrentGreen(ctx, id)
	if errors.Is(err, state.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return idx, true, nil
}

// Tick runs one decision for an intersection. Validation and computation
// errors from the arbiter are returned wrapped; recording and publishing
// failures are logged and do not fail the tick.
func (c *Controller) Tick(ctx context.Context, id string, states []arbiter.LaneState, emergency []bool) (Outcome, error) {
	lock := c.lock(id)
	lock.Lock()
	defer lock.Unlock()

	lay, known := c.layout(id)
	if known && len(states) != lay.lanes {
		return Outcome{}, fmt.Errorf("tick %s: intersection has %d lanes, got %d: %w",
			id, lay.lanes, len(states), lanes.ErrLaneCount)
	}

	current, ok, err := c.CurrentGreen(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("tick %s: %w", id, err)
	}
	switch {
	case !ok:
		current = lay.initial
	case known && !lay.fits(current):
		log.Printf("[%s] stored green %d outside %d lanes, restarting at lane %d", id, current, lay.lanes, lay.initial)
		current = lay.initial
	}

	ev, err := c.arbiter.Evaluate(states, emergency, current)
	if err != nil {
		return Outcome{}, fmt.Errorf("tick %s: %w", id, err)
	}

	if err := c.greens.SetCurrentGreen(ctx, id, ev.Decision.NextGreenLane); err != nil {
		return Outcome{}, fmt.Errorf("tick %s: %w", id, err)
	}

	out := Outcome{
		DecisionID:     c.newID(),
		IntersectionID: id,
		Evaluation:     ev,
		CreatedAt:      c.now(),
	}
	trace(id, ev)
	c.record(ctx, out, states, emergency)
	c.publish(ctx, out)
	return out, nil
}

// #endregion controller

// #region side-effects
func (c *Controller) record(ctx context.Context, out Outcome, states []arbiter.LaneState, emergency []bool) {
	if c.recorder == nil {
		return
	}
	rec := logging.NewDecisionRecord(out.IntersectionID, states, emergency, c.arbiter.Config(), out.Evaluation)
	entry, err := rec.Entry(out.DecisionID, out.Evaluation.Switched, out.CreatedAt)
	if err == nil {
		err = c.recorder.Record(ctx, entry)
	}
	if err != nil {
		log.Printf("[%s] record decision %s: %v", out.IntersectionID, out.DecisionID, err)
	}
}

func (c *Controller) publish(ctx context.Context, out Outcome) {
	if c.publisher == nil {
		return
	}
	d := out.Decision()
	err := c.publisher.Publish(ctx, notify.Event{
		DecisionID:     out.DecisionID,
		IntersectionID: out.IntersectionID,
		NextGreenLane:  d.NextGreenLane,
		GreenDuration:  d.GreenDuration,
		Reason:         string(d.Reason),
		Switched:       out.Evaluation.Switched,
		CreatedAt:      out.CreatedAt,
	})
	if err != nil {
		log.Printf("[%s] publish decision %s: %v", out.IntersectionID, out.DecisionID, err)
	}
}

func trace(id string, ev arbiter.Evaluation) {
	d := ev.Decision
	switch {
	case d.Reason == arbiter.ReasonEmergency:
		log.Printf("[%s] EMERGENCY OVERRIDE: lane %d green for %ds", id, d.NextGreenLane, d.GreenDuration)
	case ev.Switched:
		log.Printf("[%s] SWITCHING: lane %d (score %.1f) beats lane %d (score %.1f) with hysteresis, green for %ds",
			id, ev.Challenger, ev.ChallengerScore, ev.CurrentGreen, ev.CurrentScore, d.GreenDuration)
	default:
		log.Printf("[%s] HOLDING: lane %d (score %.1f) holds, challenger lane %d (score %.1f) below hysteresis, green for %ds",
			id, ev.CurrentGreen, ev.CurrentScore, ev.Challenger, ev.ChallengerScore, d.GreenDuration)
	}
}

// #endregion side-effects

func (c *Controller) lock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

func (c *Controller) layout(id string) (layout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lay, ok := c.layouts[id]
	return lay, ok
}

func (l layout) fits(idx int) bool {
	return idx >= 0 && idx < l.lanes
}
