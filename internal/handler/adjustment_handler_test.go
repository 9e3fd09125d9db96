package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/shiftpay-api/internal/middleware"
	"github.com/workpulse/shiftpay-api/internal/models"
	"github.com/workpulse/shiftpay-api/internal/service"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
)

type adjustmentServiceMock struct {
	createResp *models.Adjustment
	createErr  error
	editResp   *models.Adjustment
	editErr    error
	claimResp  []models.Adjustment
	gotCreate  service.CreateManualAdjustmentRequest
	gotCreator int64
}

func (m *adjustmentServiceMock) CreateFromAction(ctx context.Context, action models.Action, employeeID int64, shiftID, objectID *int64, createdBy int64) (*models.Adjustment, error) {
	return &models.Adjustment{EmployeeID: employeeID, Type: models.AdjustmentLateStart, Amount: action.Amount}, nil
}

func (m *adjustmentServiceMock) CreateManual(ctx context.Context, req service.CreateManualAdjustmentRequest, createdBy int64) (*models.Adjustment, error) {
	m.gotCreate = req
	m.gotCreator = createdBy
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *adjustmentServiceMock) Edit(ctx context.Context, id int64, update models.AdjustmentUpdate, updatedBy int64) (*models.Adjustment, error) {
	if m.editErr != nil {
		return nil, m.editErr
	}
	return m.editResp, nil
}

func (m *adjustmentServiceMock) ClaimUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error) {
	return m.claimResp, nil
}

func (m *adjustmentServiceMock) Apply(ctx context.Context, adjustmentIDs []int64, payrollEntryID int64, appliedBy int64) (int, error) {
	return len(adjustmentIDs), nil
}

func (m *adjustmentServiceMock) Get(ctx context.Context, id int64) (*models.Adjustment, error) {
	return nil, appErrors.ErrNotFound
}

func (m *adjustmentServiceMock) List(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func TestAdjustmentHandlerCreateManual(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &adjustmentServiceMock{createResp: &models.Adjustment{ID: 1, Type: models.AdjustmentManualBonus}}
	handler := NewAdjustmentHandler(mock, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.CreateManualAdjustmentRequest{
		EmployeeID:  100,
		Type:        string(models.AdjustmentManualBonus),
		Amount:      decimal.NewFromInt(15),
		Description: "holiday cover",
	})
	req, _ := http.NewRequest(http.MethodPost, "/adjustments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7, Role: models.RoleManager})

	handler.CreateManual(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(7), mock.gotCreator)
	assert.Equal(t, int64(100), mock.gotCreate.EmployeeID)
}

type resolutionServiceMock struct {
	actions []models.Action
	err     error
}

func (m *resolutionServiceMock) Resolve(ctx context.Context, ownerID int64, scope models.RuleScope, factCtx map[string]interface{}) ([]models.Action, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.actions, nil
}

func TestAdjustmentHandlerRecordEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resolver := &resolutionServiceMock{actions: []models.Action{
		{Kind: models.ActionFine, Amount: decimal.NewFromInt(20), Code: "late_penalty", Scope: models.ScopeLate},
	}}
	handler := NewAdjustmentHandler(&adjustmentServiceMock{}, resolver)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := []byte(`{"owner_id":7,"employee_id":100,"scope":"late","context":{"late_minutes":12}}`)
	req, _ := http.NewRequest(http.MethodPost, "/adjustments/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7, Role: models.RoleOperator})

	handler.RecordEvent(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data []models.Adjustment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, int64(100), envelope.Data[0].EmployeeID)
}

func TestAdjustmentHandlerCreateManualUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdjustmentHandler(&adjustmentServiceMock{}, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/adjustments", bytes.NewReader([]byte(`{}`)))
	c.Request = req

	handler.CreateManual(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdjustmentHandlerEditConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdjustmentHandler(&adjustmentServiceMock{editErr: appErrors.ErrAlreadyFinalized}, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := []byte(`{"amount":"-5"}`)
	req, _ := http.NewRequest(http.MethodPatch, "/adjustments/5", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7, Role: models.RoleManager})

	handler.Edit(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdjustmentHandlerClaimUnappliedValidatesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdjustmentHandler(&adjustmentServiceMock{}, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/adjustments/unapplied?period_start=2026-08-01T00:00:00Z&period_end=2026-09-01T00:00:00Z", nil)
	c.Request = req

	handler.ClaimUnapplied(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
