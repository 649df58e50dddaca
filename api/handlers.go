package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// randomCountCap bounds random sweeps submitted over the API so one task
// cannot occupy a worker indefinitely.
const randomCountCap = 1_000_000

// Server bundles dependencies for HTTP handlers.
type Server struct {
	store TaskStore
}

// NewServer creates a new API server instance.
func NewServer(store TaskStore) *Server {
	return &Server{store: store}
}

// RegisterRoutes attaches handlers to the provided router group.
func (s *Server) RegisterRoutes(routes gin.IRoutes) {
	routes.POST("/sweeps", s.createSweepHandler)
	routes.GET("/sweeps/:id", s.getSweepHandler)
}

var uuidV4Pattern = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-4[a-fA-F0-9]{3}-[abAB89][a-fA-F0-9]{3}-[a-fA-F0-9]{12}$`)

// @Summary      Submit an address sweep
// @Description  Queue a sweep of a CIDR block, a single host's neighborhood, or randomly drawn public addresses. Returns immediately with a task ID; poll GET /sweeps/{id} until the status reaches completed or failed.
// @Tags         Sweeps
// @Accept       json
// @Produce      json
// @Param        sweepRequest  body      CreateSweepRequest     true  "Sweep parameters"
// @Success      202           {object}  SweepAcceptedResponse  "Sweep accepted"
// @Failure      400           {object}  ErrorResponse          "Malformed body or failed validation"
// @Failure      401           {object}  ErrorResponse          "Missing or incorrect API key"
// @Failure      429           {object}  ErrorResponse          "Rate limit exceeded"
// @Failure      500           {object}  ErrorResponse          "Internal error while persisting or queueing"
// @Security     ApiKeyAuth
// @Router       /sweeps [post]
func (s *Server) createSweepHandler(c *gin.Context) {
	var req CreateSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload: " + err.Error()})
		return
	}

	switch req.Mode {
	case ModeCIDR, ModeHost:
		if req.Target == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "target is required for mode " + req.Mode})
			return
		}
	case ModeRandom:
		if req.Count == 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "count is required for random sweeps"})
			return
		}
		if req.Count > randomCountCap {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "count exceeds the per-task limit"})
			return
		}
	}

	port := req.Port
	if port == 0 {
		port = 25565
	}

	task := &SweepTask{
		ID:        uuid.NewString(),
		Status:    "pending",
		Mode:      req.Mode,
		Target:    req.Target,
		Port:      port,
		Count:     req.Count,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateTask(task); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to persist task"})
		return
	}

	if err := s.store.PushToQueue(task.ID); err != nil {
		task.Status = "failed"
		task.Error = "failed to queue task"
		now := time.Now().UTC()
		task.CompletedAt = &now
		_ = s.store.UpdateTask(task)

		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to queue task"})
		return
	}

	c.JSON(http.StatusAccepted, SweepAcceptedResponse{ID: task.ID, Status: task.Status})
}

// @Summary      Get sweep status and results
// @Description  Retrieve a snapshot of a sweep task. Found servers and aggregate counters are attached once the status reaches completed.
// @Tags         Sweeps
// @Produce      json
// @Param        id   path      string         true  "Sweep Task ID (UUID v4)"
// @Success      200  {object}  SweepTask      "Current task snapshot"
// @Failure      400  {object}  ErrorResponse  "Malformed task identifier"
// @Failure      401  {object}  ErrorResponse  "Missing or incorrect API key"
// @Failure      404  {object}  ErrorResponse  "Unknown task"
// @Failure      500  {object}  ErrorResponse  "Internal error while loading the task"
// @Security     ApiKeyAuth
// @Router       /sweeps/{id} [get]
func (s *Server) getSweepHandler(c *gin.Context) {
	id := c.Param("id")
	if !uuidV4Pattern.MatchString(id) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task id format"})
		return
	}

	task, err := s.store.GetTask(id)
	if err != nil {
		if err == ErrTaskNotFound {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load task"})
		return
	}

	c.JSON(http.StatusOK, task)
}
