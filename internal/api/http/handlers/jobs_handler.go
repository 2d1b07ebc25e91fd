package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/job-tracker/internal/api/dto"
	"github.com/spec-kit/job-tracker/internal/service"
	apperrors "github.com/spec-kit/job-tracker/pkg/util/errorutil"
)

// JobsHandler manages the caller's job endpoints and stats.
type JobsHandler struct {
	jobs  *service.JobService
	stats *service.StatsService
}

// NewJobsHandler constructs handler.
func NewJobsHandler(jobService *service.JobService, statsService *service.StatsService) *JobsHandler {
	return &JobsHandler{jobs: jobService, stats: statsService}
}

// List GET /api/jobs.
func (h *JobsHandler) List(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	q := service.JobQuery{Status: c.Query("status"), Search: c.Query("q")}
	if raw := c.Query("favorite"); raw != "" {
		fav, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewFieldErrors(map[string]string{"favorite": "favorite must be true or false"})
		}
		q.Favorite = &fav
	}

	jobs, err := h.jobs.List(c.UserContext(), identity, q)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewJobResponses(jobs))
}

// Create POST /api/jobs.
func (h *JobsHandler) Create(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var in service.JobInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	job, err := h.jobs.Create(c.UserContext(), identity, in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewJobResponse(job))
}

// Get GET /api/jobs/:id.
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	job, err := h.jobs.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewJobResponse(job))
}

// Update PUT /api/jobs/:id. The top-level key set decides whether the payload is a favorite toggle.
func (h *JobsHandler) Update(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := parseBody(c, &raw); err != nil {
		return err
	}
	var in service.JobInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}

	job, err := h.jobs.Update(c.UserContext(), identity, c.Params("id"), in, keys)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewJobResponse(job))
}

// Delete DELETE /api/jobs/:id.
func (h *JobsHandler) Delete(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.jobs.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "job deleted"})
}

// Stats GET /api/jobs/stats.
func (h *JobsHandler) Stats(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.ForUser(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewStatsResponse(stats))
}

// AdminStats GET /api/jobs/admin/stats.
func (h *JobsHandler) AdminStats(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.Global(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewStatsResponse(stats))
}
