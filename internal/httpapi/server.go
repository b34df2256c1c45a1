// Package httpapi exposes the jukebox core over HTTP: load an analysis,
// control playback, stream state, and inspect/edit the jump graph. It is a
// thin shell around internal/driver, internal/jumpgraph, and internal/track
// for the `jukebox serve` command; no state is persisted beyond the
// process's lifetime.
package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/foreverjukebox/core/internal/driver"
	"github.com/foreverjukebox/core/internal/jukeboxerr"
	"github.com/foreverjukebox/core/internal/jumpgraph"
	"github.com/foreverjukebox/core/internal/player"
	"github.com/foreverjukebox/core/internal/selector"
	"github.com/foreverjukebox/core/internal/track"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server wraps a live jukebox session behind HTTP handlers.
type Server struct {
	echo *echo.Echo

	graphCfg    jumpgraph.Config
	selectorCfg selector.Config

	mu      sync.Mutex
	tr      *track.Track
	builder *jumpgraph.Builder
	drv     *driver.Driver
}

// New constructs a Server with the given default graph/selector configs,
// applied whenever a new analysis is loaded. Routes follow the teacher's
// echo.New()+middleware.Logger/Recover/CORS setup.
func New(graphCfg jumpgraph.Config, selectorCfg selector.Config) *Server {
	s := &Server{graphCfg: graphCfg, selectorCfg: selectorCfg}

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/api/state", s.handleState)
	e.POST("/api/load", s.handleLoad)
	e.POST("/api/play", s.handlePlay)
	e.POST("/api/pause", s.handlePause)
	e.POST("/api/stop", s.handleStop)
	e.POST("/api/edges/delete", s.handleDeleteEdge)
	e.POST("/api/rebuild", s.handleRebuild)
	e.GET("/api/viz", s.handleViz)

	s.echo = e
	return s
}

// Start blocks serving on addr, following the teacher's direct e.Start(addr)
// call.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeErr(c echo.Context, status int, err error) error {
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	if je, ok := err.(*jukeboxerr.Error); ok {
		switch je.Kind {
		case jukeboxerr.InvalidAnalysis:
			return http.StatusBadRequest
		case jukeboxerr.NotLoaded:
			return http.StatusConflict
		case jukeboxerr.DegenerateGraph:
			return http.StatusOK
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) handleLoad(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeErr(c, http.StatusBadRequest, err)
	}

	tr, err := track.Normalize(body)
	if err != nil {
		return writeErr(c, statusFor(err), err)
	}

	builder := jumpgraph.NewBuilder(s.graphCfg)
	state, err := builder.Build(tr)
	if err != nil && state == nil {
		return writeErr(c, statusFor(err), err)
	}

	sel := selector.NewSelector(s.selectorCfg, selector.NewRNG(selector.RandomModeRandom, 0, nil))
	branch := selector.NewBranchState(s.selectorCfg)
	p := player.NewSimulated()
	if lerr := p.Load(); lerr != nil {
		return writeErr(c, http.StatusInternalServerError, lerr)
	}
	drv := driver.New(p, tr, sel, branch)
	if lerr := drv.Load(time.Now()); lerr != nil {
		return writeErr(c, http.StatusInternalServerError, lerr)
	}

	s.mu.Lock()
	s.tr = tr
	s.builder = builder
	s.drv = drv
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"totalBeats":      tr.TotalBeats(),
		"lastBranchPoint": state.LastBranchPoint,
		"degenerate":      state.Degenerate,
	})
}

func (s *Server) handlePlay(c echo.Context) error {
	s.mu.Lock()
	drv := s.drv
	s.mu.Unlock()
	if drv == nil {
		return writeErr(c, http.StatusConflict, jukeboxerr.ErrNotLoaded)
	}
	if err := drv.Play(); err != nil {
		return writeErr(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handlePause(c echo.Context) error {
	s.mu.Lock()
	drv := s.drv
	s.mu.Unlock()
	if drv == nil {
		return writeErr(c, http.StatusConflict, jukeboxerr.ErrNotLoaded)
	}
	if err := drv.Pause(); err != nil {
		return writeErr(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStop(c echo.Context) error {
	s.mu.Lock()
	drv := s.drv
	s.mu.Unlock()
	if drv == nil {
		return writeErr(c, http.StatusConflict, jukeboxerr.ErrNotLoaded)
	}
	if err := drv.Stop(); err != nil {
		return writeErr(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type deleteEdgeRequest struct {
	Src  int `json:"src"`
	Dest int `json:"dest"`
}

func (s *Server) handleDeleteEdge(c echo.Context) error {
	var req deleteEdgeRequest
	if err := c.Bind(&req); err != nil {
		return writeErr(c, http.StatusBadRequest, err)
	}

	s.mu.Lock()
	builder := s.builder
	s.mu.Unlock()
	if builder == nil {
		return writeErr(c, http.StatusConflict, jukeboxerr.ErrNotLoaded)
	}
	builder.DeleteEdge(req.Src, req.Dest)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRebuild(c echo.Context) error {
	s.mu.Lock()
	builder, tr := s.builder, s.tr
	s.mu.Unlock()
	if builder == nil || tr == nil {
		return writeErr(c, http.StatusConflict, jukeboxerr.ErrNotLoaded)
	}
	state, err := builder.Rebuild(tr)
	if err != nil && state == nil {
		return writeErr(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"lastBranchPoint": state.LastBranchPoint,
		"degenerate":      state.Degenerate,
	})
}

func (s *Server) handleViz(c echo.Context) error {
	s.mu.Lock()
	builder, tr := s.builder, s.tr
	s.mu.Unlock()
	if builder == nil || tr == nil {
		return writeErr(c, http.StatusConflict, jukeboxerr.ErrNotLoaded)
	}
	return c.JSON(http.StatusOK, builder.GetVisualizationData(tr))
}

// handleState streams a driver.State snapshot as a server-sent event
// whenever the driver ticks, until the client disconnects.
func (s *Server) handleState(c echo.Context) error {
	s.mu.Lock()
	drv := s.drv
	s.mu.Unlock()
	if drv == nil {
		return writeErr(c, http.StatusConflict, jukeboxerr.ErrNotLoaded)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(http.StatusOK)

	ch := make(chan driver.State, 8)
	unsub := drv.Subscribe(ch)
	defer unsub()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case snap := <-ch:
			fmt.Fprintf(c.Response(), "data: %s\n\n", stateJSON(snap))
			c.Response().Flush()
		}
	}
}

func stateJSON(s driver.State) string {
	return fmt.Sprintf(
		`{"currentBeatIndex":%d,"beatsPlayed":%d,"playing":%t,"currentTime":%f,`+
			`"lastJumped":%t,"lastJumpFromIndex":%d,"currentThreshold":%f,`+
			`"lastBranchPoint":%d,"curRandomBranchChance":%f}`,
		s.BeatIndex, s.BeatsPlayed, s.Playing, s.CurrentTime.Seconds(),
		s.LastJumped, s.LastJumpFromIndex, s.CurrentThreshold,
		s.LastBranchPoint, s.CurRandomBranchChance,
	)
}
