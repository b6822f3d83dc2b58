// Package http 融资服务接口层
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/venturelink/funding/internal/investment/application"
	"github.com/venturelink/funding/internal/investment/domain"
	"github.com/venturelink/funding/pkg/utils"
)

// Handler 融资服务 HTTP 接口处理器
type Handler struct {
	commandService *application.InvestmentCommandService
	queryService   *application.InvestmentQueryService
}

// NewHandler 创建 HTTP 处理器
func NewHandler(
	commandService *application.InvestmentCommandService,
	queryService *application.InvestmentQueryService,
) *Handler {
	return &Handler{
		commandService: commandService,
		queryService:   queryService,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	investments := r.Group("/investments")
	{
		investments.POST("", h.CreateInvestment)
		investments.GET("", h.ListInvestments)
		investments.GET("/:id", h.GetInvestment)
		investments.GET("/:id/contributions", h.ListContributions)
		investments.POST("/:id/contributions", h.Contribute)
		investments.GET("/:id/balances/:investor_id", h.GetBalance)
		investments.POST("/:id/accruals", h.AccrueReturns)
		investments.POST("/:id/complete", h.CompleteInvestment)
		investments.POST("/:id/cancel", h.CancelInvestment)
		investments.POST("/:id/expire", h.ExpireInvestment)
	}
}

// WriteError 将领域错误映射为 HTTP 响应
func WriteError(c *gin.Context, err error) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verrs})
		return
	}

	var stateErr *domain.StateError
	if errors.As(err, &stateErr) {
		c.JSON(http.StatusConflict, gin.H{"error": stateErr.Error()})
		return
	}

	var authErr *domain.AuthorizationError
	if errors.As(err, &authErr) {
		c.JSON(http.StatusForbidden, gin.H{"error": authErr.Error()})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInsufficientFunds):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// CreateInvestmentRequest 发布融资请求
type CreateInvestmentRequest struct {
	SeekerID    string          `json:"seeker_id" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Deadline    time.Time       `json:"deadline" binding:"required"`
	TermsType   string          `json:"terms_type" binding:"required"`
	TermsText   string          `json:"terms_text"`
}

// CreateInvestment 发布融资请求
func (h *Handler) CreateInvestment(c *gin.Context) {
	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.commandService.CreateInvestment(c.Request.Context(), application.CreateInvestmentCommand{
		SeekerID:    req.SeekerID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Deadline:    req.Deadline,
		TermsType:   req.TermsType,
		TermsText:   req.TermsText,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto)
}

// GetInvestment 获取融资请求详情
func (h *Handler) GetInvestment(c *gin.Context) {
	dto, err := h.queryService.GetInvestment(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// ListInvestments 列出融资请求
func (h *Handler) ListInvestments(c *gin.Context) {
	if seekerID := c.Query("seeker_id"); seekerID != "" {
		dtos, err := h.queryService.ListBySeeker(c.Request.Context(), seekerID)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"investments": dtos})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p := utils.NewPagination(page, pageSize, 0)

	dtos, total, err := h.queryService.ListInvestments(c.Request.Context(), c.Query("status"), p.Limit(), p.Offset())
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"investments": dtos,
		"pagination":  utils.NewPagination(p.Page, p.PageSize, total),
	})
}

// ContributeRequest 出资请求
type ContributeRequest struct {
	InvestorID string          `json:"investor_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// Contribute 出资
func (h *Handler) Contribute(c *gin.Context) {
	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.commandService.Contribute(c.Request.Context(), application.ContributeCommand{
		InvestmentID: c.Param("id"),
		InvestorID:   req.InvestorID,
		Amount:       req.Amount,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto)
}

// ListContributions 列出出资记录
func (h *Handler) ListContributions(c *gin.Context) {
	dtos, err := h.queryService.ListContributions(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributions": dtos})
}

// GetBalance 获取投资人回报余额
func (h *Handler) GetBalance(c *gin.Context) {
	dto, err := h.queryService.GetBalance(c.Request.Context(), c.Param("id"), c.Param("investor_id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// AccrueReturnsRequest 回报计提请求，仅筹资方或平台管理员可触发
type AccrueReturnsRequest struct {
	ActorID    string          `json:"actor_id" binding:"required"`
	Profit     decimal.Decimal `json:"profit"`
	PeriodDays int             `json:"period_days"`
	Note       string          `json:"note"`
}

// AccrueReturns 为所有出资人计提回报
func (h *Handler) AccrueReturns(c *gin.Context) {
	var req AccrueReturnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.commandService.AccrueReturns(c.Request.Context(), application.AccrueReturnsCommand{
		InvestmentID: c.Param("id"),
		ActorID:      req.ActorID,
		Profit:       req.Profit,
		PeriodDays:   req.PeriodDays,
		Note:         req.Note,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "returns accrued"})
}

// SeekerActionRequest 筹资方操作请求
type SeekerActionRequest struct {
	SeekerID string `json:"seeker_id" binding:"required"`
}

// CompleteInvestment 筹资方结项
func (h *Handler) CompleteInvestment(c *gin.Context) {
	var req SeekerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.commandService.CompleteInvestment(c.Request.Context(), c.Param("id"), req.SeekerID); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "completed"})
}

// CancelInvestment 筹资方撤回
func (h *Handler) CancelInvestment(c *gin.Context) {
	var req SeekerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.commandService.CancelInvestment(c.Request.Context(), c.Param("id"), req.SeekerID); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancelled"})
}

// ExpireInvestment 将过期募集置为 EXPIRED（内部或管理员接口）
func (h *Handler) ExpireInvestment(c *gin.Context) {
	if err := h.commandService.ExpireInvestment(c.Request.Context(), c.Param("id")); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "expired"})
}
