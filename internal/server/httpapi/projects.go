package httpapi

import (
	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/server/services"
	"github.com/gin-gonic/gin"
)

type projectDetailsRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

func (s *Server) handleCreateProject(c *gin.Context) {
	file, ok := s.formFile(c, "file")
	if !ok {
		return
	}

	name := c.PostForm("name")
	if name == "" {
		s.respondError(c, common.Unprocessable(map[string]string{"name": "must not be empty"}))
		return
	}

	user, err := s.projects.CreateFromUpload(c.Request.Context(), callerID(c), services.CreateProjectInput{
		Name:        name,
		Description: c.PostForm("description"),
		File:        file,
	})
	s.respond(c, user, err)
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.projects.List(c.Request.Context(), callerID(c))
	s.respond(c, projects, err)
}

func (s *Server) handleGetProject(c *gin.Context) {
	projectID, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	project, err := s.projects.Get(c.Request.Context(), callerID(c), projectID)
	s.respond(c, project, err)
}

// handleUpdateProjectDetails and handleDeleteProject live under /users/:id
// for compatibility with existing clients, but :id is the project id.
func (s *Server) handleUpdateProjectDetails(c *gin.Context) {
	projectID, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	var req projectDetailsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.projects.UpdateDetails(c.Request.Context(), callerID(c), projectID, req.Name, req.Description)
	s.respond(c, user, err)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	projectID, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	user, err := s.projects.Delete(c.Request.Context(), callerID(c), projectID)
	s.respond(c, user, err)
}
