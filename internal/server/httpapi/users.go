package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/server/services"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,password"`
	PasswordConfirmation string `json:"passwordConfirmation" binding:"required,eqfield=Password"`
	FirstName            string `json:"firstName" binding:"required,max=100"`
	LastName             string `json:"lastName" binding:"required,max=100"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password           string `json:"password" binding:"required,password"`
	ConfirmPassword    string `json:"confirmPassword" binding:"required,eqfield=Password"`
	PasswordResetToken string `json:"passwordResetToken" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	Password        string `json:"password" binding:"required,password"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type updateNamesRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.users.Register(c.Request.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	s.respond(c, user, err)
}

// handleVerifyEmail confirms the address and sends the browser to the login page.
func (s *Server) handleVerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		s.respondError(c, common.BadRequest("Invalid verification code"))
		return
	}

	if err := s.users.VerifyEmail(c.Request.Context(), token); err != nil {
		s.respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, s.loginPageURL)
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if err := s.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset e-mail sent"})
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if err := s.users.ResetPassword(c.Request.Context(), req.PasswordResetToken, req.Password); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.users.ChangePassword(c.Request.Context(), callerID(c), req.OldPassword, req.Password)
	s.respond(c, user, err)
}

func (s *Server) handleUpdateNames(c *gin.Context) {
	userID, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	var req updateNamesRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.users.UpdateNames(c.Request.Context(), callerID(c), userID, req.FirstName, req.LastName)
	s.respond(c, user, err)
}

func (s *Server) handleUpdateProfilePicture(c *gin.Context) {
	userID, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	file, ok := s.formFile(c, "file")
	if !ok {
		return
	}

	user, err := s.users.UpdateProfilePicture(c.Request.Context(), callerID(c), userID, file)
	s.respond(c, user, err)
}
