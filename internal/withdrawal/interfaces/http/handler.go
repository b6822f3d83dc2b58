// Package http 提现服务接口层
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invhttp "github.com/venturelink/funding/internal/investment/interfaces/http"
	"github.com/venturelink/funding/internal/withdrawal/application"
)

// Handler 提现服务 HTTP 接口处理器
type Handler struct {
	commandService *application.WithdrawalCommandService
	queryService   *application.WithdrawalQueryService
}

// NewHandler 创建 HTTP 处理器
func NewHandler(
	commandService *application.WithdrawalCommandService,
	queryService *application.WithdrawalQueryService,
) *Handler {
	return &Handler{
		commandService: commandService,
		queryService:   queryService,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	withdrawals := r.Group("/withdrawals")
	{
		withdrawals.POST("", h.SubmitWithdrawal)
		withdrawals.GET("", h.ListWithdrawals)
		withdrawals.GET("/:id", h.GetWithdrawal)
		withdrawals.POST("/:id/approve", h.ApproveWithdrawal)
		withdrawals.POST("/:id/reject", h.RejectWithdrawal)
	}
}

// SubmitWithdrawalRequest 提交提现请求
type SubmitWithdrawalRequest struct {
	InvestmentID      string          `json:"investment_id" binding:"required"`
	InvestorID        string          `json:"investor_id" binding:"required"`
	Amount            decimal.Decimal `json:"amount" binding:"required"`
	BankName          string          `json:"bank_name" binding:"required"`
	BankAccountName   string          `json:"bank_account_name" binding:"required"`
	BankAccountNumber string          `json:"bank_account_number" binding:"required"`
	IFSCCode          string          `json:"ifsc_code" binding:"required"`
}

// SubmitWithdrawal 提交提现
func (h *Handler) SubmitWithdrawal(c *gin.Context) {
	var req SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.commandService.SubmitWithdrawal(c.Request.Context(), application.SubmitWithdrawalCommand{
		InvestmentID:      req.InvestmentID,
		InvestorID:        req.InvestorID,
		Amount:            req.Amount,
		BankName:          req.BankName,
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
		IFSCCode:          req.IFSCCode,
	})
	if err != nil {
		invhttp.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto)
}

// GetWithdrawal 获取提现请求详情
func (h *Handler) GetWithdrawal(c *gin.Context) {
	dto, err := h.queryService.GetWithdrawal(c.Request.Context(), c.Param("id"))
	if err != nil {
		invhttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// ListWithdrawals 按投资人或融资请求列出提现请求
func (h *Handler) ListWithdrawals(c *gin.Context) {
	if investorID := c.Query("investor_id"); investorID != "" {
		dtos, err := h.queryService.ListByInvestor(c.Request.Context(), investorID)
		if err != nil {
			invhttp.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": dtos})
		return
	}

	if investmentID := c.Query("investment_id"); investmentID != "" {
		dtos, err := h.queryService.ListByInvestment(c.Request.Context(), investmentID)
		if err != nil {
			invhttp.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": dtos})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "investor_id or investment_id is required"})
}

// DecideWithdrawalRequest 审批提现请求
type DecideWithdrawalRequest struct {
	DeciderID string `json:"decider_id" binding:"required"`
	Reason    string `json:"reason"`
}

// ApproveWithdrawal 审批通过
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	var req DecideWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.commandService.ApproveWithdrawal(c.Request.Context(), application.DecideWithdrawalCommand{
		WithdrawalID: c.Param("id"),
		DeciderID:    req.DeciderID,
	})
	if err != nil {
		invhttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "approved"})
}

// RejectWithdrawal 审批拒绝
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	var req DecideWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.commandService.RejectWithdrawal(c.Request.Context(), application.DecideWithdrawalCommand{
		WithdrawalID: c.Param("id"),
		DeciderID:    req.DeciderID,
		Reason:       req.Reason,
	})
	if err != nil {
		invhttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rejected"})
}
