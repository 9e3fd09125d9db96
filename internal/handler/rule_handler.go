package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/shiftpay-api/internal/models"
	"github.com/workpulse/shiftpay-api/internal/service"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
	"github.com/workpulse/shiftpay-api/pkg/response"
)

type ruleService interface {
	List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.Rule, error)
	Create(ctx context.Context, req service.SaveRuleRequest) (*models.Rule, error)
	Update(ctx context.Context, id int64, req service.SaveRuleRequest) (*models.Rule, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type resolutionService interface {
	Resolve(ctx context.Context, ownerID int64, scope models.RuleScope, factCtx map[string]interface{}) ([]models.Action, error)
}

// RuleHandler exposes REST endpoints for rule authoring and resolution.
type RuleHandler struct {
	rules      ruleService
	resolution resolutionService
}

// NewRuleHandler constructs the handler.
func NewRuleHandler(rules ruleService, resolution resolutionService) *RuleHandler {
	return &RuleHandler{rules: rules, resolution: resolution}
}

// List godoc
// @Summary List policy rules
// @Tags Rules
// @Produce json
// @Param owner_id query int false "Tenant id"
// @Param scope query string false "Rule scope"
// @Param active query bool false "Active flag"
// @Success 200 {object} response.Envelope
// @Router /rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	filter := models.RuleFilter{
		OwnerID:  queryInt64(c, "owner_id"),
		Scope:    models.RuleScope(strings.TrimSpace(c.Query("scope"))),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 50),
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	rules, pagination, err := h.rules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, pagination)
}

// Get godoc
// @Summary Fetch one rule
// @Tags Rules
// @Produce json
// @Param id path int true "Rule id"
// @Success 200 {object} response.Envelope
// @Router /rules/{id} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule id"))
		return
	}
	rule, err := h.rules.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Create godoc
// @Summary Author a new rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body service.SaveRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /rules [post]
func (h *RuleHandler) Create(c *gin.Context) {
	var req service.SaveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule payload"))
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Update godoc
// @Summary Update a rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path int true "Rule id"
// @Param payload body service.SaveRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /rules/{id} [put]
func (h *RuleHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule id"))
		return
	}
	var req service.SaveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule payload"))
		return
	}
	rule, err := h.rules.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// SetActive godoc
// @Summary Enable or disable a rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path int true "Rule id"
// @Success 204
// @Router /rules/{id}/active [patch]
func (h *RuleHandler) SetActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule id"))
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	if err := h.rules.SetActive(c.Request.Context(), id, req.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResolveRequest is the payload for a dry-run or event-driven resolution call.
type ResolveRequest struct {
	OwnerID int64                  `json:"owner_id" binding:"required"`
	Scope   string                 `json:"scope" binding:"required"`
	Context map[string]interface{} `json:"context"`
}

// Resolve godoc
// @Summary Resolve actions for a business event
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body ResolveRequest true "Resolution request"
// @Success 200 {object} response.Envelope
// @Router /rules/resolve [post]
func (h *RuleHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resolution payload"))
		return
	}
	actions, err := h.resolution.Resolve(c.Request.Context(), req.OwnerID, models.RuleScope(req.Scope), req.Context)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, actions, nil)
}
