package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownIntersection is returned for IDs missing from the configuration.
var ErrUnknownIntersection = errors.New("unknown intersection")

// #region runner
// Runner drives the periodic control loop. Each intersection gets its own
// goroutine which ticks, then sleeps for the granted green duration. When no
// observation has arrived yet it polls every idle interval.
type Runner struct {
	ctrl          *Controller
	board         *lanes.Board
	waits         *lanes.WaitTracker
	intersections []Intersection
	idle          time.Duration
	now           func() time.Time
}

// NewRunner creates a loop over the given intersections.
func NewRunner(ctrl *Controller, board *lanes.Board, waits *lanes.WaitTracker, intersections []Intersection, idle time.Duration) *Runner {
	for _, in := range intersections {
		ctrl.Register(in.ID, len(in.Lanes), in.InitialGreen)
	}
	return &Runner{
		ctrl:          ctrl,
		board:         board,
		waits:         waits,
		intersections: intersections,
		idle:          idle,
		now:           time.Now,
	}
}

// Lookup finds a configured intersection by ID.
func (r *Runner) Lookup(id string) (Intersection, bool) {
	for _, in := range r.intersections {
		if in.ID == id {
			return in, true
		}
	}
	return Intersection{}, false
}

// Observe stores the latest detector reading for a configured intersection.
// The next loop iteration for that intersection picks it up.
func (r *Runner) Observe(id string, obs []lanes.Observation) error {
	in, ok := r.Lookup(id)
	if !ok {
		return fmt.Errorf("observe %s: %w", id, ErrUnknownIntersection)
	}
	return r.board.Update(id, len(in.Lanes), obs, r.now())
}

// Run blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, in := range r.intersections {
		in := in
		g.Go(func() error {
			r.loop(ctx, in)
			return nil
		})
	}
	return g.Wait()
}

type loopState struct {
	ticked bool
	green  int
	at     time.Time
}

func (r *Runner) loop(ctx context.Context, in Intersection) {
	// Waits accrued by a previous run are stale.
	r.waits.Reset(in.ID)
	var st loopState
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		timer.Reset(r.step(ctx, in, &st))
	}
}

// step runs one loop iteration and returns how long to wait before the next.
func (r *Runner) step(ctx context.Context, in Intersection, st *loopState) time.Duration {
	obs, _, ok := r.board.Latest(in.ID)
	if !ok {
		return r.idle
	}

	now := r.now()
	if st.ticked {
		// An HTTP tick may have moved the green since our last step.
		green, ok, err := r.ctrl.CurrentGreen(ctx, in.ID)
		if err != nil {
			log.Printf("[%s] read green: %v", in.ID, err)
		} else if ok {
			st.green = green
		}
		r.waits.Advance(in.ID, counts(obs), st.green, now.Sub(st.at))
	}

	states, flags, err := lanes.Snapshot(in.Lanes, obs, r.waits.Waits(in.ID, len(in.Lanes)))
	if err != nil {
		log.Printf("[%s] snapshot: %v", in.ID, err)
		return r.idle
	}
	out, err := r.ctrl.Tick(ctx, in.ID, states, flags)
	if err != nil {
		log.Printf("[%s] tick: %v", in.ID, err)
		return r.idle
	}

	st.ticked, st.green, st.at = true, out.Decision().NextGreenLane, now
	return time.Duration(out.Decision().GreenDuration) * time.Second
}

// #endregion runner

// #region views
// Views returns the dashboard view of every configured intersection.
func (r *Runner) Views(ctx context.Context) ([]IntersectionView, error) {
	views := make([]IntersectionView, 0, len(r.intersections))
	for _, in := range r.intersections {
		green, hasGreen, err := r.ctrl.CurrentGreen(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		v := IntersectionView{
			ID:           in.ID,
			CurrentGreen: green,
			HasGreen:     hasGreen,
			Lanes:        make([]LaneView, len(in.Lanes)),
		}
		obs, at, ok := r.board.Latest(in.ID)
		if ok {
			v.UpdatedAt = &at
		}
		waits := r.waits.Waits(in.ID, len(in.Lanes))
		for i, spec := range in.Lanes {
			lv := LaneView{
				Name:     spec.Name,
				Kind:     spec.Kind,
				WaitTime: waits[i],
				SatRate:  spec.EffectiveSatRate(),
				Green:    hasGreen && i == green,
			}
			if ok {
				lv.Count = obs[i].Count
				lv.Emergency = obs[i].Emergency
			}
			v.Lanes[i] = lv
		}
		views = append(views, v)
	}
	return views, nil
}

// #endregion views

func counts(obs []lanes.Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Count
	}
	return out
}
