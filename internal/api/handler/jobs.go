package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mixshift/sqp-importer/internal/domain"
	"github.com/mixshift/sqp-importer/internal/repository"
	"gorm.io/gorm"
)

// JobHandler serves pull job lookups for operators.
type JobHandler struct {
	registry *repository.Registry
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - registry: tenant registry for context resolution.
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(registry *repository.Registry) *JobHandler {
	return &JobHandler{registry: registry}
}

// JobResponse bundles a job with its activity log entries.
type JobResponse struct {
	Job      *domain.PullJob           `json:"job"`
	Activity []domain.ActivityLogEntry `json:"activity"`
}

// GetJob returns one pull job with its activity log. The tenant query
// parameter selects the storage context.
func (h *JobHandler) GetJob(c *gin.Context) {
	tenantID := c.Query("tenant")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant parameter is required"})
		return
	}
	tctx, err := h.registry.Context(tenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	job, err := tctx.Jobs.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries, err := tctx.Activity.ListByJob(ctx, job.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, JobResponse{Job: job, Activity: entries})
}
