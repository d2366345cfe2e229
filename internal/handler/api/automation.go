package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketpulse/internal/handler/dto/request"
	"marketpulse/internal/handler/dto/response"
	"marketpulse/internal/handler/httperr"
	"marketpulse/internal/pkg/errs"
	"marketpulse/internal/queue"
	"marketpulse/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AutomationHandler exposes the operational surface: inspect the scheduler
// and queue, toggle tasks, trigger runs, and enqueue ad hoc jobs.
type AutomationHandler struct {
	sched *scheduler.Scheduler
	jobs  queue.Store
}

func NewAutomationHandler(sched *scheduler.Scheduler, jobs queue.Store) *AutomationHandler {
	return &AutomationHandler{sched: sched, jobs: jobs}
}

func (h *AutomationHandler) Status(c *gin.Context) {
	running, tasks := h.sched.Status()

	counts, err := h.jobs.CountByStatus(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to count jobs", nil)
		return
	}
	jobCounts := make(map[string]int64, len(counts))
	for status, n := range counts {
		jobCounts[string(status)] = n
	}

	c.JSON(http.StatusOK, response.AutomationStatus{
		Running: running,
		Tasks:   tasks,
		Jobs:    jobCounts,
	})
}

func (h *AutomationHandler) TriggerTask(c *gin.Context) {
	name := c.Param("name")

	err := h.sched.TriggerNow(name)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"task": name, "triggered": true})
	case errors.Is(err, errs.ErrTaskNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Task not found", gin.H{"task": name})
	case errors.Is(err, scheduler.ErrTaskDisabled):
		httperr.AbortWithError(c, http.StatusConflict, err, "Task is disabled", gin.H{"task": name})
	case errors.Is(err, scheduler.ErrNotRunning):
		httperr.AbortWithError(c, http.StatusConflict, err, "Scheduler is not running", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to trigger task", nil)
	}
}

func (h *AutomationHandler) SetTaskEnabled(c *gin.Context) {
	name := c.Param("name")

	var req request.SetTaskEnabled
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request body", nil)
		return
	}

	if err := h.sched.SetEnabled(name, *req.Enabled); err != nil {
		if errors.Is(err, errs.ErrTaskNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Task not found", gin.H{"task": name})
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to update task", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": name, "enabled": *req.Enabled})
}

func (h *AutomationHandler) EnqueueJob(c *gin.Context) {
	var req request.EnqueueJob
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request body", nil)
		return
	}

	job := queue.NewJob{
		Kind:        req.Kind,
		Priority:    req.Priority,
		Payload:     req.Payload,
		MaxAttempts: req.MaxAttempts,
	}
	if req.RunAt != "" {
		runAt, err := time.Parse(time.RFC3339, req.RunAt)
		if err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid run_at timestamp", nil)
			return
		}
		job.RunAt = runAt
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid user_id", nil)
			return
		}
		job.UserID = &userID
	}

	id, err := h.jobs.Enqueue(c.Request.Context(), job)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to enqueue job", nil)
		return
	}
	c.JSON(http.StatusCreated, response.EnqueuedJob{ID: id.String()})
}

func (h *AutomationHandler) ListFailedJobs(c *gin.Context) {
	limit := int32(50)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n <= 0 {
			httperr.AbortWithError(c, http.StatusBadRequest, errs.New("invalid limit"), "Invalid limit", nil)
			return
		}
		limit = int32(n)
	}

	jobs, err := h.jobs.ListFailed(c.Request.Context(), limit)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to list failed jobs", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": response.NewFailedJobs(jobs)})
}
