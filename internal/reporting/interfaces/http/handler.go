// Package http 报表服务接口层
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invhttp "github.com/venturelink/funding/internal/investment/interfaces/http"
	"github.com/venturelink/funding/internal/reporting/application"
)

// Handler 报表服务 HTTP 接口处理器
type Handler struct {
	reporting *application.ReportingService
}

// NewHandler 创建 HTTP 处理器
func NewHandler(reporting *application.ReportingService) *Handler {
	return &Handler{reporting: reporting}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.GET("/investors/:id", h.InvestorStatement)
		reports.GET("/seekers/:id", h.SeekerDashboard)
	}
}

// InvestorStatement 投资人对账单
func (h *Handler) InvestorStatement(c *gin.Context) {
	statement, err := h.reporting.InvestorStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		invhttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

// SeekerDashboard 筹资方看板
func (h *Handler) SeekerDashboard(c *gin.Context) {
	dashboard, err := h.reporting.SeekerDashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		invhttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
