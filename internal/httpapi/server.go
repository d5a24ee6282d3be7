// Package httpapi exposes the arbiter and controller over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/controller"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
	"github.com/gin-gonic/gin"
)

// DecisionLister reads decision history.
type DecisionLister interface {
	ListDecisions(ctx context.Context, f state.DecisionFilter) ([]state.DecisionRow, error)
}

// #region server
// Server holds the HTTP handlers' collaborators.
type Server struct {
	ctrl      *controller.Controller
	runner    *controller.Runner
	decisions DecisionLister
}

// New creates a server. decisions may be nil, in which case the history
// endpoint returns 503.
func New(ctrl *controller.Controller, runner *controller.Runner, decisions DecisionLister) *Server {
	return &Server{ctrl: ctrl, runner: runner, decisions: decisions}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLog())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	traffic := router.Group("/api/traffic-data")
	{
		traffic.GET("", s.dashboard)
		traffic.POST("/signal-decision", s.decide)
	}

	intersections := router.Group("/api/intersections/:id")
	{
		intersections.POST("/observations", s.observe)
		intersections.POST("/tick", s.tick)
		intersections.GET("/decisions", s.listDecisions)
	}
	return router
}

// #endregion server

// #region middleware
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[http] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

// #endregion middleware

// #region errors
func writeError(c *gin.Context, err error) {
	var verr *arbiter.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := ErrorResponse{Error: verr.Error(), Field: verr.Field}
		if verr.Index >= 0 {
			idx := verr.Index
			resp.Lane = &idx
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, controller.ErrUnknownIntersection):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, lanes.ErrLaneCount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: "lanes"})
	case errors.Is(err, arbiter.ErrComputation):
		log.Printf("[http] computation error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[http] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func badRequest(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Field: field})
}

// #endregion errors
