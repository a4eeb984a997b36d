package handler

import (
	"context"
	"strconv"

	deliveryapp "github.com/restaurant-platform/backend/internal/application/delivery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler handles menu synchronization API endpoints
type SyncHandler struct {
	BaseHandler
	syncService *deliveryapp.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *deliveryapp.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Start godoc
// @ID           startMenuSync
// @Summary      Start a menu synchronization job
// @Description  Creates the job and runs it asynchronously; poll the job resource for progress
// @Tags         delivery
// @Accept       json
// @Produce      json
// @Param        request body StartSyncRequest true "Sync request"
// @Success      202 {object} APIResponse[SyncJobResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/sync [post]
func (h *SyncHandler) Start(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req StartSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	appReq, err := toSyncRequest(tenantID, req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	job, err := h.syncService.StartSync(c.Request.Context(), appReq)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	// The job runs detached from the request; its lifetime is bounded by the
	// job record, not the HTTP call.
	go func() {
		_ = h.syncService.Execute(context.Background(), job, appReq)
	}()

	c.JSON(202, APIResponse[SyncJobResponse]{Success: true, Data: ToSyncJobResponse(job)})
}

// Get godoc
// @ID           getSyncJob
// @Summary      Get a sync job
// @Tags         delivery
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} APIResponse[SyncJobResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/sync/{id} [get]
func (h *SyncHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.syncService.GetJob(c.Request.Context(), tenantID, jobID)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.Success(c, ToSyncJobResponse(job))
}

// Cancel godoc
// @ID           cancelSyncJob
// @Summary      Request cooperative cancellation of a sync job
// @Description  The in-flight batch finishes; later batches are skipped
// @Tags         delivery
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} APIResponse[SyncJobResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/sync/{id}/cancel [post]
func (h *SyncHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.syncService.CancelSync(c.Request.Context(), tenantID, jobID)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.Success(c, ToSyncJobResponse(job))
}

// List godoc
// @ID           listSyncJobs
// @Summary      List recent sync jobs for a branch and provider
// @Tags         delivery
// @Produce      json
// @Param        branch_id query string true "Branch ID"
// @Param        provider query string true "Provider code"
// @Param        limit query int false "Max results" default(20)
// @Success      200 {object} APIResponse[[]SyncJobResponse]
// @Security     BearerAuth
// @Router       /delivery/sync [get]
func (h *SyncHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}
	provider, ok := parseProviderQuery(c)
	if !ok {
		h.BadRequest(c, "Invalid provider code")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	jobs, err := h.syncService.ListRecent(c.Request.Context(), tenantID, branchID, provider, limit)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	responses := make([]SyncJobResponse, len(jobs))
	for i := range jobs {
		responses[i] = ToSyncJobResponse(&jobs[i])
	}
	h.Success(c, responses)
}
