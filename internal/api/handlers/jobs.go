package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapbooth/boothd/internal/core"
	"github.com/snapbooth/boothd/internal/db"
)

type CreateJobRequest struct {
	SourceRef   string `json:"source_ref" binding:"required"`
	PrinterName string `json:"printer_name"`
}

type ListJobsQuery struct {
	State    string `form:"state"`
	FromDate string `form:"from_date"`
	ToDate   string `form:"to_date"`
	Limit    int    `form:"limit" binding:"max=500"`
	Offset   int    `form:"offset"`
}

type JobHandler struct {
	queue *core.PrintQueue
}

func NewJobHandler(queue *core.PrintQueue) *JobHandler {
	return &JobHandler{queue: queue}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID, err := h.queue.Submit(c.Request.Context(), req.SourceRef, req.PrinterName)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidSource):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, core.ErrQueueFull):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	job, err := h.queue.GetStatus(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submitted job"})
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob checks the live queue first and falls back to the history
// mirror, so finished jobs from earlier process runs stay reachable.
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	if job, err := h.queue.GetStatus(id); err == nil {
		c.JSON(http.StatusOK, job)
		return
	}

	record, err := db.Jobs.GetJobByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")

	cancelled, err := h.queue.Cancel(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	job, err := h.queue.GetStatus(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cancelled": cancelled,
		"state":     job.State,
	})
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var query ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 50
	}

	filter := db.JobFilter{
		State:  query.State,
		Limit:  query.Limit,
		Offset: query.Offset,
	}

	if query.FromDate != "" {
		from, err := time.Parse("2006-01-02", query.FromDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from_date must be YYYY-MM-DD"})
			return
		}
		filter.FromDate = &from
	}
	if query.ToDate != "" {
		to, err := time.Parse("2006-01-02", query.ToDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to_date must be YYYY-MM-DD"})
			return
		}
		// Make the range inclusive of the named day.
		to = to.AddDate(0, 0, 1)
		filter.ToDate = &to
	}

	jobs, err := db.Jobs.ListJobs(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"count":  len(jobs),
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

func (h *JobHandler) GetQueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Stats())
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs", h.CreateJob)
	r.GET("/jobs/:id", h.GetJob)
	r.POST("/jobs/:id/cancel", h.CancelJob)
	r.GET("/queue/stats", h.GetQueueStats)
}
