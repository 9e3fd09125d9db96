package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/shiftpay-api/internal/models"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
	"github.com/workpulse/shiftpay-api/pkg/response"
)

type payrollService interface {
	Run(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time, createdBy int64) (*models.PayrollRunResult, error)
	Get(ctx context.Context, id int64) (*models.PayrollEntry, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]models.PayrollEntry, error)
	Statement(ctx context.Context, payrollEntryID int64, format string) ([]byte, string, error)
}

// PayrollHandler exposes payroll run and statement endpoints.
type PayrollHandler struct {
	payroll payrollService
}

// NewPayrollHandler constructs the handler.
func NewPayrollHandler(payroll payrollService) *PayrollHandler {
	return &PayrollHandler{payroll: payroll}
}

type runPayrollRequest struct {
	EmployeeID  int64     `json:"employee_id" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// Run godoc
// @Summary Run payroll for one employee over a period
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body runPayrollRequest true "Run parameters"
// @Success 201 {object} response.Envelope
// @Router /payroll/runs [post]
func (h *PayrollHandler) Run(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req runPayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payroll run payload"))
		return
	}
	result, err := h.payroll.Run(c.Request.Context(), req.EmployeeID, req.PeriodStart, req.PeriodEnd, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Fetch one payroll entry
// @Tags Payroll
// @Produce json
// @Param id path int true "Payroll entry id"
// @Success 200 {object} response.Envelope
// @Router /payroll/runs/{id} [get]
func (h *PayrollHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payroll entry id"))
		return
	}
	entry, err := h.payroll.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ListByEmployee godoc
// @Summary List payroll entries for an employee
// @Tags Payroll
// @Produce json
// @Param employee_id query int true "Employee id"
// @Success 200 {object} response.Envelope
// @Router /payroll/runs [get]
func (h *PayrollHandler) ListByEmployee(c *gin.Context) {
	employeeID := queryInt64(c, "employee_id")
	if employeeID == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "employee_id is required"))
		return
	}
	entries, err := h.payroll.ListByEmployee(c.Request.Context(), *employeeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Statement godoc
// @Summary Download a payroll statement
// @Tags Payroll
// @Produce octet-stream
// @Param id path int true "Payroll entry id"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /payroll/runs/{id}/statement [get]
func (h *PayrollHandler) Statement(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payroll entry id"))
		return
	}
	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.payroll.Statement(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("statement-%d.%s", id, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
