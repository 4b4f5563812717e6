package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/irfndi/etfflow-go/internal/models"
	"github.com/irfndi/etfflow-go/internal/services"
	"github.com/irfndi/etfflow-go/internal/utils"
)

// AlertHandler manages user threshold rules.
type AlertHandler struct {
	alerts *services.AlertService
}

// CreateRuleRequest is the body of POST /alerts/rules.
type CreateRuleRequest struct {
	Metric    models.FlowMetric      `json:"metric" binding:"required"`
	Threshold decimal.Decimal        `json:"threshold"`
	Condition services.RuleCondition `json:"condition" binding:"required"`
}

func NewAlertHandler(alerts *services.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// ListRules returns every rule.
func (h *AlertHandler) ListRules(c *gin.Context) {
	rules := h.alerts.Rules()
	c.JSON(http.StatusOK, gin.H{"rules": rules, "count": len(rules)})
}

// CreateRule registers a new rule.
func (h *AlertHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	id, err := h.alerts.AddRule(req.Metric, req.Threshold, req.Condition)
	if utils.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create rule"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// DeleteRule removes a rule by ID.
func (h *AlertHandler) DeleteRule(c *gin.Context) {
	if !h.alerts.RemoveRule(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
