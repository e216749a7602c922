package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/refresh", s.handleRefresh)
		authGroup.POST("/logout", s.handleLogout)
		authGroup.GET("/me", s.requireAuth, s.handleMe)
	}

	users := api.Group("/users")
	{
		users.POST("", s.handleRegister)
		users.GET("/verify-email", s.handleVerifyEmail)
		users.POST("/forgot-password", s.handleForgotPassword)
		users.PATCH("/reset-password", s.handleResetPassword)

		users.PATCH("/password", s.requireAuth, s.handleChangePassword)
		users.POST("/create-audio-project", s.requireAuth, s.handleCreateProject)
		users.PUT("/:id", s.requireAuth, s.handleUpdateNames)
		users.PATCH("/:id/profile-picture", s.requireAuth, s.handleUpdateProfilePicture)
		users.PATCH("/:id/project-details", s.requireAuth, s.handleUpdateProjectDetails)
		users.DELETE("/:id/delete-project", s.requireAuth, s.handleDeleteProject)
	}

	projects := api.Group("/projects", s.requireAuth)
	{
		projects.GET("", s.handleListProjects)
		projects.GET("/:id", s.handleGetProject)
	}

	audio := api.Group("/audio/:projectId", s.requireAuth)
	{
		audio.POST("/transcribe", s.handleTranscribe)
		audio.POST("/mute-audio", s.handleMute)
		audio.POST("/replace-with-tone", s.handleReplaceWithTone)
		audio.POST("/replace-with-tts", s.handleReplaceWithTTS)
		audio.POST("/convert-format", s.handleConvertFormat)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		s.respondStatus(c, http.StatusNotFound, "Not found")
	})
}

// handleHealth reports the server as up and includes the processor status
// when it can be reached.
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}

	h, err := s.audio.ProcessorHealth(c.Request.Context())
	if err != nil {
		s.logger.Warn(c.Request.Context(), "processor health check failed", "error", err)
		body["processor"] = gin.H{"status": "unavailable"}
	} else {
		body["processor"] = h
	}

	c.JSON(http.StatusOK, body)
}
