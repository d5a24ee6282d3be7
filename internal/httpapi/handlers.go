package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/controller"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// #region traffic-data
// dashboard returns the live view of every configured intersection.
func (s *Server) dashboard(c *gin.Context) {
	views, err := s.runner.Views(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"intersections": views})
}

// decide runs the engine once on the request body. Nothing is stored.
func (s *Server) decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", fmt.Sprintf("malformed body: %v", err))
		return
	}
	if req.CurrentGreenIndex == nil {
		badRequest(c, "current_green_index", "current_green_index is required")
		return
	}

	cfg := s.ctrl.Arbiter().Config()
	if req.Beta != nil {
		cfg.Beta = *req.Beta
	}
	if req.Hysteresis != nil {
		cfg.Hysteresis = *req.Hysteresis
	}

	decision, err := arbiter.New(cfg).Decide(req.Lanes, req.EmergencyFlags, *req.CurrentGreenIndex)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// #endregion traffic-data

// #region intersections
func (s *Server) observe(c *gin.Context) {
	id := c.Param("id")
	var req ObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", fmt.Sprintf("malformed body: %v", err))
		return
	}

	obs := make([]lanes.Observation, len(req.Lanes))
	for i, l := range req.Lanes {
		count := l.Detections.VehicleCount()
		if l.Count != nil {
			if *l.Count < 0 {
				badRequest(c, "count", fmt.Sprintf("lane %d: count must be non-negative", i))
				return
			}
			count = *l.Count
		}
		obs[i] = lanes.Observation{Count: count, Emergency: l.Emergency}
	}

	if err := s.runner.Observe(id, obs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"intersection_id": id, "lanes": len(obs)})
}

// tick runs a stateful decision with caller-supplied lane states.
func (s *Server) tick(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.runner.Lookup(id); !ok {
		writeError(c, fmt.Errorf("tick %s: %w", id, controller.ErrUnknownIntersection))
		return
	}
	var req TickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", fmt.Sprintf("malformed body: %v", err))
		return
	}

	out, err := s.ctrl.Tick(c.Request.Context(), id, req.Lanes, req.EmergencyFlags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TickResponse{
		DecisionID: out.DecisionID,
		Decision:   out.Decision(),
		Switched:   out.Evaluation.Switched,
		CreatedAt:  out.CreatedAt,
	})
}

func (s *Server) listDecisions(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.runner.Lookup(id); !ok {
		writeError(c, fmt.Errorf("decisions %s: %w", id, controller.ErrUnknownIntersection))
		return
	}
	if s.decisions == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "decision history is not enabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := s.decisions.ListDecisions(c.Request.Context(), state.DecisionFilter{IntersectionID: id, Limit: limit})
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]DecisionResponse, len(rows))
	for i, r := range rows {
		out[i] = DecisionResponse{
			DecisionID:     r.DecisionID,
			IntersectionID: r.IntersectionID,
			NextGreenLane:  r.NextGreenLane,
			GreenDuration:  r.GreenDuration,
			Reason:         r.Reason,
			Switched:       r.Switched,
			CreatedAt:      r.CreatedAt,
		}
		if r.InputsJSON != "" && json.Valid([]byte(r.InputsJSON)) {
			out[i].Inputs = json.RawMessage(r.InputsJSON)
		}
	}
	c.JSON(http.StatusOK, gin.H{"decisions": out})
}

// #endregion intersections
