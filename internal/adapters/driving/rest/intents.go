package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

// CreateIntentRequest is the body of POST /api/intent/create.
type CreateIntentRequest struct {
	RawIntent string `json:"rawIntent"`
}

// RefineIntentRequest is the body of PUT /api/intent/:id/refine.
// Absent fields are left unchanged.
type RefineIntentRequest struct {
	MainGoal *domain.MainGoal `json:"mainGoal"`
	SubGoals []domain.SubGoal `json:"subGoals"`
}

// FlowsResponse lists the flows of an intent.
type FlowsResponse struct {
	Flows []domain.Flow `json:"flows"`
	Count int           `json:"count"`
}

func (s *Server) createIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.RawIntent) == "" {
		s.badRequest(c, "Raw intent is required")
		return
	}

	intent, err := s.intents.CreateIntent(c.Request.Context(), req.RawIntent)
	if err != nil {
		s.respondError(c, "Failed to create intent", err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (s *Server) getIntent(c *gin.Context) {
	intent, err := s.intents.GetIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, "Failed to get intent", err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *Server) refineIntent(c *gin.Context) {
	var req RefineIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid JSON body")
		return
	}
	if req.MainGoal == nil && req.SubGoals == nil {
		s.badRequest(c, "mainGoal or subGoals is required")
		return
	}

	update := domain.IntentUpdate{MainGoal: req.MainGoal, SubGoals: req.SubGoals}
	intent, err := s.intents.RefineIntent(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		s.respondError(c, "Failed to refine intent", err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *Server) finalizeIntent(c *gin.Context) {
	intent, err := s.intents.FinalizeIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, "Failed to finalize intent", err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *Server) deleteIntent(c *gin.Context) {
	if err := s.intents.DeleteIntent(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, "Failed to delete intent", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listFlows(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := s.intents.GetIntent(ctx, id); err != nil {
		s.respondError(c, "Failed to list flows", err)
		return
	}
	flows, err := s.intents.ListFlows(ctx, id)
	if err != nil {
		s.respondError(c, "Failed to list flows", err)
		return
	}
	if flows == nil {
		flows = []domain.Flow{}
	}
	c.JSON(http.StatusOK, FlowsResponse{Flows: flows, Count: len(flows)})
}
