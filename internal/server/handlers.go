package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/conversation"
	"github.com/borjamrd/hormiwita/internal/model"
)

func (s *Server) createSession(c *gin.Context) {
	sess, err := s.manager.StartSession(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) resetSession(c *gin.Context) {
	sess, err := s.manager.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type messageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	sess, err := s.manager.HandleMessage(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type objectivesRequest struct {
	Kind  string   `json:"kind" binding:"required"`
	Items []string `json:"items"`
}

func (s *Server) postObjectives(c *gin.Context) {
	var req objectivesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind is required"})
		return
	}
	kind := conversation.ObjectiveKind(req.Kind)
	if kind != conversation.ObjectivesGeneral && kind != conversation.ObjectivesSpecific {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be general or specific"})
		return
	}
	sess, err := s.manager.SubmitObjectives(c.Request.Context(), c.Param("id"), kind, req.Items)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type statementRequest struct {
	FileDataURI string `json:"fileDataUri" binding:"required"`
	FileName    string `json:"fileName"`
}

func (s *Server) postStatement(c *gin.Context) {
	var req statementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileDataUri is required"})
		return
	}
	sess, err := s.manager.UploadStatement(c.Request.Context(), c.Param("id"), req.FileDataURI, req.FileName)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) confirmStatement(c *gin.Context) {
	sess, err := s.manager.ConfirmStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) acceptSummary(c *gin.Context) {
	sess, err := s.manager.AcceptSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// forecastResponse bundles the scenario breakdown with the cumulative
// monthly series.
type forecastResponse struct {
	Scenario model.SavingsScenario `json:"scenario"`
	Months   []model.ForecastPoint `json:"months"`
}

func (s *Server) getForecast(c *gin.Context) {
	scenario, months, err := s.manager.Forecast(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, forecastResponse{Scenario: scenario, Months: months})
}

func (s *Server) generateRoadmap(c *gin.Context) {
	sess, err := s.manager.GenerateRoadmap(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) advanceRoadmap(c *gin.Context) {
	step, err := s.manager.AdvanceRoadmap(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if step == nil {
		c.JSON(http.StatusOK, gin.H{"step": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": step})
}

type completeStepRequest struct {
	Objective string `json:"objective" binding:"required"`
}

func (s *Server) completeRoadmapStep(c *gin.Context) {
	var req completeStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "objective is required"})
		return
	}
	sess, err := s.manager.CompleteRoadmapStep(c.Request.Context(), c.Param("id"), req.Objective)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// fail maps domain errors onto HTTP statuses with user-facing messages.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, common.ErrSessionBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "la sesión está procesando otra acción"})
	case errors.Is(err, common.ErrEmptySelection),
		errors.Is(err, common.ErrNoStatement),
		errors.Is(err, common.ErrStatementNotUsable),
		errors.Is(err, common.ErrNoCategorizedExpenses),
		errors.Is(err, common.ErrNoRoadmap),
		errors.Is(err, common.ErrUnknownStep):
		c.JSON(http.StatusBadRequest, gin.H{"error": userFacing(err)})
	default:
		common.LogError(err, "request failed", common.Fields{"path": c.Request.URL.Path})
		c.JSON(http.StatusInternalServerError, gin.H{"error": userFacing(err)})
	}
}

func userFacing(err error) string {
	return common.UserMessage(err, "ha ocurrido un error inesperado, inténtalo de nuevo")
}
