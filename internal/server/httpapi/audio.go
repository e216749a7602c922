package httpapi

import (
	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/server/services"
	"github.com/gin-gonic/gin"
)

// audioRequest resolves the project id and parses the operation parameters.
// When parsing fails the caller's access is checked first, so a non-owner is
// answered with forbidden regardless of what they sent.
func (s *Server) audioRequest(c *gin.Context, parse func() error) (int64, bool) {
	projectID, ok := s.pathID(c, "projectId")
	if !ok {
		return 0, false
	}

	if err := parse(); err != nil {
		if accessErr := s.audio.CheckAccess(c.Request.Context(), callerID(c), projectID); accessErr != nil {
			err = accessErr
		}
		s.respondError(c, err)
		return 0, false
	}
	return projectID, true
}

func (s *Server) handleTranscribe(c *gin.Context) {
	projectID, ok := s.pathID(c, "projectId")
	if !ok {
		return
	}

	res, err := s.audio.Transcribe(c.Request.Context(), callerID(c), projectID)
	s.respond(c, res, err)
}

func (s *Server) handleMute(c *gin.Context) {
	var params services.MuteParams
	projectID, ok := s.audioRequest(c, func() (err error) {
		if params.StartTime, err = requiredFloat(c, "start_time"); err != nil {
			return err
		}
		if params.EndTime, err = requiredFloat(c, "end_time"); err != nil {
			return err
		}
		params.OutputFormat = optionalString(c, "output_format")
		return nil
	})
	if !ok {
		return
	}

	res, err := s.audio.Mute(c.Request.Context(), callerID(c), projectID, params)
	s.respond(c, res, err)
}

func (s *Server) handleReplaceWithTone(c *gin.Context) {
	var params services.ToneParams
	projectID, ok := s.audioRequest(c, func() (err error) {
		if params.StartTime, err = requiredFloat(c, "start_time"); err != nil {
			return err
		}
		if params.EndTime, err = requiredFloat(c, "end_time"); err != nil {
			return err
		}
		if params.Frequency, err = optionalInt(c, "tone_frequency"); err != nil {
			return err
		}
		params.OutputFormat = optionalString(c, "output_format")
		return nil
	})
	if !ok {
		return
	}

	res, err := s.audio.ReplaceWithTone(c.Request.Context(), callerID(c), projectID, params)
	s.respond(c, res, err)
}

func (s *Server) handleReplaceWithTTS(c *gin.Context) {
	var params services.TTSParams
	projectID, ok := s.audioRequest(c, func() (err error) {
		if params.StartTime, err = requiredFloat(c, "start_time"); err != nil {
			return err
		}
		if params.EndTime, err = optionalFloat(c, "end_time"); err != nil {
			return err
		}
		if params.UseEdgeTTS, err = optionalBool(c, "use_edge_tts"); err != nil {
			return err
		}
		params.Text, _ = formValue(c, "replacement_text")
		params.Gender = optionalString(c, "gender")
		params.OutputFormat = optionalString(c, "output_format")
		return nil
	})
	if !ok {
		return
	}

	res, err := s.audio.ReplaceWithTTS(c.Request.Context(), callerID(c), projectID, params)
	s.respond(c, res, err)
}

func (s *Server) handleConvertFormat(c *gin.Context) {
	var params services.ConvertParams
	projectID, ok := s.audioRequest(c, func() error {
		params.TargetFormat = optionalString(c, "target_format")
		if params.TargetFormat == "" {
			return common.BadRequest("target_format is required")
		}
		return nil
	})
	if !ok {
		return
	}

	res, err := s.audio.ConvertFormat(c.Request.Context(), callerID(c), projectID, params)
	s.respond(c, res, err)
}
