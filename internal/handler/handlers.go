package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"LinguaTutor/internal/identity"
	"LinguaTutor/internal/models"
	"LinguaTutor/internal/session"
	"LinguaTutor/pkg/middleware"
	"LinguaTutor/pkg/sse"
)

// Handlers 本地 HTTP 面板：给前端页面提供会话状态、学习模式目录
// 和操作入口，同时暴露健康检查与指标。
type Handlers struct {
	controller *session.Controller
	profile    *identity.Profile
	hub        *sse.Hub
}

// NewHandlers 创建路由处理器
func NewHandlers(controller *session.Controller, profile *identity.Profile, hub *sse.Hub) *Handlers {
	return &Handlers{
		controller: controller,
		profile:    profile,
		hub:        hub,
	}
}

// Register 注册全部路由
func (h *Handlers) Register(engine *gin.Engine) {
	engine.Use(middleware.LanguageMiddleware())
	engine.Use(middleware.RateLimiter(middleware.DefaultRateLimiterConfig()))

	engine.GET("/healthz", h.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		api.GET("/profile", h.handleProfile)
		api.GET("/modes", h.handleModes)

		s := api.Group("/session")
		{
			s.GET("/state", h.handleState)
			s.GET("/stream", h.handleStream)
			s.POST("/text", h.handleSendText)
			s.POST("/reset", h.handleReset)
			s.POST("/quiz/answer", h.handleQuizAnswer)
			s.POST("/advance", h.handleAdvance)
		}
	}
}

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleProfile 学生档案
func (h *Handlers) handleProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.profile)
}

// handleModes 学习模式目录，按学校类别过滤
func (h *Handlers) handleModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"modes": models.ModesForSchool(h.profile.SchoolCategory),
	})
}

// handleState 会话状态快照
func (h *Handlers) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State())
}

// handleStream 会话状态的 SSE 推送
func (h *Handlers) handleStream(c *gin.Context) {
	h.hub.Serve(c)
}

// handleSendText 发送文字消息
func (h *Handlers) handleSendText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if err := h.controller.SendText(req.Text); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// handleReset 重置当前话题的对话
func (h *Handlers) handleReset(c *gin.Context) {
	if err := h.controller.ResetChat(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// handleQuizAnswer 回答当前测验题
func (h *Handlers) handleQuizAnswer(c *gin.Context) {
	var req struct {
		OptionIndex *int `json:"optionIndex" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "optionIndex is required"})
		return
	}
	if err := h.controller.AnswerQuiz(*req.OptionIndex); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	stage, _ := h.controller.ListeningStage()
	c.JSON(http.StatusOK, gin.H{"stage": stage})
}

// handleAdvance 请求进入下一个听力阶段
func (h *Handlers) handleAdvance(c *gin.Context) {
	if err := h.controller.AdvanceStage(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "requested"})
}
