// Package gateway exposes the board engine and the dashboard tabs over HTTP.
package gateway

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/mrInvincible29/mission-control/internal/board"
	"github.com/mrInvincible29/mission-control/internal/cronjobs"
	"github.com/mrInvincible29/mission-control/internal/domain"
	"github.com/mrInvincible29/mission-control/internal/feed"
	"github.com/mrInvincible29/mission-control/internal/health"
	"github.com/mrInvincible29/mission-control/internal/logview"
	"github.com/mrInvincible29/mission-control/internal/search"
	"github.com/mrInvincible29/mission-control/internal/taskrepo"
)

const requestBodyMaxSize = 1 << 20

// Server carries everything the HTTP layer needs. Optional fields left nil
// disable their routes.
type Server struct {
	Cache     *board.Cache
	Directory taskrepo.Directory
	Health    *health.Poller
	Cron      *cronjobs.Bridge
	Feed      *feed.Client
	Logs      *logview.Client
	Search    *search.Index
	Log       *log.Logger

	// the editor and drag controller assume a single driving loop, so the
	// handlers take this lock around every board mutation
	mu     sync.Mutex
	editor *board.Editor
	drag   *board.Drag
}

// Register wires up all routes on the provided Echo instance.
func (s *Server) Register(e *echo.Echo) {
	if s.Log == nil {
		s.Log = log.StandardLogger()
	}
	s.editor = board.NewEditor(s.Cache)
	s.drag = board.NewDrag(s.Cache, s.Log)

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/api/board", s.getBoard)
	e.POST("/api/tasks", s.postTask)
	e.PATCH("/api/tasks/:id", s.patchTask)
	e.POST("/api/tasks/:id/move", s.moveTask)
	e.DELETE("/api/tasks/:id", s.deleteTask)

	if s.Directory != nil {
		e.GET("/api/assignees", s.getAssignees)
	}
	if s.Health != nil {
		e.GET("/api/health", s.getHealth)
	}
	if s.Cron != nil {
		e.GET("/api/cron", s.getCron)
		e.POST("/api/cron/:id/enable", s.cronControl((*cronjobs.Bridge).Enable))
		e.POST("/api/cron/:id/disable", s.cronControl((*cronjobs.Bridge).Disable))
		e.POST("/api/cron/:id/run", s.cronControl((*cronjobs.Bridge).RunNow))
	}
	if s.Feed != nil {
		e.GET("/api/feed", s.getFeed)
	}
	if s.Logs != nil {
		e.GET("/api/logs", s.getLogs)
	}
	if s.Search != nil {
		e.GET("/api/search", s.getSearch)
	}
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

type boardResponse struct {
	Columns map[domain.Status][]domain.Task `json:"columns"`
}

func (s *Server) getBoard(c echo.Context) (err error) {
	metrics := newBoardRequestMetrics(s.Log)
	defer func() { metrics.Log(c.Response().Status, err) }()

	ctx := c.Request().Context()
	if c.QueryParam("refresh") == "1" {
		metrics.SetRefreshed(true)
		if refreshErr := metrics.ObserveFetch(func() error { return s.Cache.Refresh(ctx) }); refreshErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(refreshErr)
			err = c.String(http.StatusBadGateway, "task store unavailable")
			return err
		}
	}

	cols := s.Cache.Columns()
	total := 0
	for _, col := range cols {
		total += len(col)
	}
	metrics.SetCardsReturned(total)
	err = metrics.ObserveEncode(func() error {
		return c.JSON(http.StatusOK, boardResponse{Columns: cols})
	})
	if err != nil {
		metrics.SetErrorStage("encode_response")
	}
	return err
}

func (s *Server) postTask(c echo.Context) error {
	var draft taskrepo.Draft
	if err := decodeBody(c, &draft); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if err := domain.ValidateTitle(draft.Title); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if draft.Status != "" && !draft.Status.Valid() {
		return c.String(http.StatusBadRequest, "unknown status")
	}
	if draft.Priority != "" && !draft.Priority.Valid() {
		return c.String(http.StatusBadRequest, "unknown priority")
	}

	s.mu.Lock()
	id := s.Cache.Apply(c.Request().Context(), board.Create{Draft: draft})
	s.mu.Unlock()
	return c.JSON(http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) patchTask(c echo.Context) error {
	id := c.Param("id")
	var patch taskrepo.Patch
	if err := decodeBody(c, &patch); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if patch.IsEmpty() {
		return c.NoContent(http.StatusNoContent)
	}
	if patch.Title != nil {
		if err := domain.ValidateTitle(*patch.Title); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return c.String(http.StatusBadRequest, "unknown priority")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return c.String(http.StatusBadRequest, "unknown status")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Cache.Task(id); !ok {
		return c.String(http.StatusNotFound, "unknown task")
	}
	// a bare status change lands at the end of the target column, same as
	// the detail pane's status dropdown
	if patch.Status != nil && patch.Position == nil {
		pos := s.Cache.EndOfColumn(*patch.Status)
		patch.Position = &pos
	}
	s.Cache.Apply(c.Request().Context(), board.Edit{ID: id, Patch: patch})
	return c.NoContent(http.StatusAccepted)
}

type moveRequest struct {
	Status       domain.Status `json:"status"`
	BeforeTaskID string        `json:"beforeTaskId,omitempty"`
}

func (s *Server) moveTask(c echo.Context) error {
	id := c.Param("id")
	var req moveRequest
	if err := decodeBody(c, &req); err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	target := board.DropTarget{Kind: board.TargetColumn, Status: req.Status}
	if req.BeforeTaskID != "" {
		target.Kind = board.TargetCard
		target.TaskID = req.BeforeTaskID
	}

	s.mu.Lock()
	move, err := s.drag.DropOn(c.Request().Context(), id, target)
	s.mu.Unlock()
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if move == nil {
		// landing on its own slot changes nothing
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"status":   string(move.Status),
		"position": move.Position.String(),
	})
}

func (s *Server) deleteTask(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.QueryParam("confirm") != "1" {
		if _, ok := s.Cache.Task(id); !ok {
			return c.String(http.StatusNotFound, "unknown task")
		}
		s.editor.ArmDelete(id)
		return c.JSON(http.StatusAccepted, map[string]string{"armed": id})
	}
	if err := s.editor.ConfirmDelete(c.Request().Context(), id); err != nil {
		return c.String(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getAssignees(c echo.Context) error {
	assignees, err := s.Directory.Assignees(c.Request().Context())
	if err != nil {
		c.Logger().Error(err)
		return c.String(http.StatusBadGateway, "directory unavailable")
	}
	return c.JSON(http.StatusOK, assignees)
}

func (s *Server) getHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Health.Snapshot())
}

func (s *Server) getCron(c echo.Context) error {
	jobs, err := s.Cron.List(c.Request().Context())
	if err != nil {
		c.Logger().Error(err)
		return c.String(http.StatusBadGateway, "cron control unavailable")
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) cronControl(verb func(*cronjobs.Bridge, context.Context, string) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := verb(s.Cron, c.Request().Context(), c.Param("id")); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusBadGateway, "cron control unavailable")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) getFeed(c echo.Context) error {
	limit := intParam(c, "limit", 50)
	entries, err := s.Feed.Recent(c.Request().Context(), limit)
	if err != nil {
		c.Logger().Error(err)
		return c.String(http.StatusBadGateway, "feed unavailable")
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) getLogs(c echo.Context) error {
	limit := intParam(c, "limit", 100)
	entries, err := s.Logs.Tail(c.Request().Context(), c.QueryParam("service"), limit)
	if err != nil {
		c.Logger().Error(err)
		return c.String(http.StatusBadGateway, "logs unavailable")
	}
	if level := c.QueryParam("level"); level != "" {
		entries = logview.AtLeast(entries, level)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) getSearch(c echo.Context) error {
	hits, err := s.Search.Search(c.Request().Context(), c.QueryParam("q"), intParam(c, "limit", 20))
	if err != nil {
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, "search failed")
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return c.JSON(http.StatusOK, hits)
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func intParam(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
