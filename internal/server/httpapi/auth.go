package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	tokens, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setAccessCookie(c, tokens.AccessToken)
	c.JSON(http.StatusOK, tokens)
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if !s.bindJSON(c, &req) {
		return
	}

	tokens, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setAccessCookie(c, tokens.AccessToken)
	c.JSON(http.StatusOK, tokens)
}

func (s *Server) handleLogout(c *gin.Context) {
	var req refreshRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if err := s.users.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		s.respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.AccessTokenCookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.users.Me(c.Request.Context(), callerID(c))
	s.respond(c, user, err)
}

func (s *Server) setAccessCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.AccessTokenCookieName, token, int(s.accessTTL.Seconds()), "/", "", c.Request.TLS != nil, true)
}
