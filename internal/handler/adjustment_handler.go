package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/workpulse/shiftpay-api/internal/models"
	"github.com/workpulse/shiftpay-api/internal/service"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
	"github.com/workpulse/shiftpay-api/pkg/response"
)

type adjustmentService interface {
	CreateFromAction(ctx context.Context, action models.Action, employeeID int64, shiftID, objectID *int64, createdBy int64) (*models.Adjustment, error)
	CreateManual(ctx context.Context, req service.CreateManualAdjustmentRequest, createdBy int64) (*models.Adjustment, error)
	Edit(ctx context.Context, id int64, update models.AdjustmentUpdate, updatedBy int64) (*models.Adjustment, error)
	ClaimUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error)
	Apply(ctx context.Context, adjustmentIDs []int64, payrollEntryID int64, appliedBy int64) (int, error)
	Get(ctx context.Context, id int64) (*models.Adjustment, error)
	List(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, *models.Pagination, error)
}

// AdjustmentHandler exposes REST endpoints for the adjustment ledger.
type AdjustmentHandler struct {
	adjustments adjustmentService
	resolution  resolutionService
}

// NewAdjustmentHandler constructs the handler.
func NewAdjustmentHandler(adjustments adjustmentService, resolution resolutionService) *AdjustmentHandler {
	return &AdjustmentHandler{adjustments: adjustments, resolution: resolution}
}

// List godoc
// @Summary List adjustments
// @Tags Adjustments
// @Produce json
// @Param employee_id query int false "Employee id"
// @Param type query string false "Adjustment type"
// @Param is_applied query bool false "Applied flag"
// @Success 200 {object} response.Envelope
// @Router /adjustments [get]
func (h *AdjustmentHandler) List(c *gin.Context) {
	filter := models.AdjustmentFilter{
		EmployeeID: queryInt64(c, "employee_id"),
		ShiftID:    queryInt64(c, "shift_id"),
		ObjectID:   queryInt64(c, "object_id"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 50),
	}
	if raw := c.Query("type"); raw != "" {
		filter.Types = []models.AdjustmentType{models.AdjustmentType(raw)}
	}
	if raw := c.Query("is_applied"); raw != "" {
		applied := raw == "true"
		filter.Applied = &applied
	}
	adjustments, pagination, err := h.adjustments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adjustments, pagination)
}

// Get godoc
// @Summary Fetch one adjustment
// @Tags Adjustments
// @Produce json
// @Param id path int true "Adjustment id"
// @Success 200 {object} response.Envelope
// @Router /adjustments/{id} [get]
func (h *AdjustmentHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid adjustment id"))
		return
	}
	adjustment, err := h.adjustments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adjustment, nil)
}

// CreateManual godoc
// @Summary Record a manual adjustment
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param payload body service.CreateManualAdjustmentRequest true "Adjustment payload"
// @Success 201 {object} response.Envelope
// @Router /adjustments [post]
func (h *AdjustmentHandler) CreateManual(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateManualAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid adjustment payload"))
		return
	}
	adjustment, err := h.adjustments.CreateManual(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, adjustment)
}

// RecordEventRequest carries a business event to resolve and ledger in one call.
type RecordEventRequest struct {
	OwnerID    int64                  `json:"owner_id" binding:"required"`
	EmployeeID int64                  `json:"employee_id" binding:"required"`
	Scope      string                 `json:"scope" binding:"required"`
	ShiftID    *int64                 `json:"shift_id"`
	ObjectID   *int64                 `json:"object_id"`
	Context    map[string]interface{} `json:"context"`
}

// RecordEvent godoc
// @Summary Resolve a business event and record the resulting adjustments
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param payload body RecordEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Router /adjustments/events [post]
func (h *AdjustmentHandler) RecordEvent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid event payload"))
		return
	}

	factCtx := req.Context
	if factCtx == nil {
		factCtx = map[string]interface{}{}
	}
	if req.ObjectID != nil {
		factCtx["object_id"] = *req.ObjectID
	}

	actions, err := h.resolution.Resolve(c.Request.Context(), req.OwnerID, models.RuleScope(req.Scope), factCtx)
	if err != nil {
		response.Error(c, err)
		return
	}

	created := make([]*models.Adjustment, 0, len(actions))
	for _, action := range actions {
		adj, err := h.adjustments.CreateFromAction(c.Request.Context(), action, req.EmployeeID, req.ShiftID, req.ObjectID, claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		created = append(created, adj)
	}
	response.Created(c, created)
}

type editAdjustmentRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
}

// Edit godoc
// @Summary Edit an adjustment
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param id path int true "Adjustment id"
// @Param payload body editAdjustmentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /adjustments/{id} [patch]
func (h *AdjustmentHandler) Edit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid adjustment id"))
		return
	}
	var req editAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit payload"))
		return
	}
	update := models.AdjustmentUpdate{Amount: req.Amount, Description: req.Description}
	adjustment, err := h.adjustments.Edit(c.Request.Context(), id, update, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adjustment, nil)
}

type applyAdjustmentsRequest struct {
	AdjustmentIDs  []int64 `json:"adjustment_ids" binding:"required"`
	PayrollEntryID int64   `json:"payroll_entry_id" binding:"required"`
}

// Apply godoc
// @Summary Apply adjustments to a payroll entry
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param payload body applyAdjustmentsRequest true "Ids to apply"
// @Success 200 {object} response.Envelope
// @Router /adjustments/apply [post]
func (h *AdjustmentHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req applyAdjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid apply payload"))
		return
	}
	count, err := h.adjustments.Apply(c.Request.Context(), req.AdjustmentIDs, req.PayrollEntryID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"applied_count": count}, nil)
}

// ClaimUnapplied godoc
// @Summary List unapplied adjustments for a pay period
// @Tags Adjustments
// @Produce json
// @Param employee_id query int true "Employee id"
// @Param period_start query string true "Period start (RFC 3339)"
// @Param period_end query string true "Period end (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /adjustments/unapplied [get]
func (h *AdjustmentHandler) ClaimUnapplied(c *gin.Context) {
	employeeID := queryInt64(c, "employee_id")
	if employeeID == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "employee_id is required"))
		return
	}
	periodStart, err := time.Parse(time.RFC3339, c.Query("period_start"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid period_start"))
		return
	}
	periodEnd, err := time.Parse(time.RFC3339, c.Query("period_end"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid period_end"))
		return
	}
	adjustments, err := h.adjustments.ClaimUnapplied(c.Request.Context(), *employeeID, periodStart, periodEnd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adjustments, nil)
}
