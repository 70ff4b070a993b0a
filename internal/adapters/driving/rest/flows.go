package rest

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

const contentTypeXML = "application/xml; charset=utf-8"

// DescriptionResponse is the body of GET /api/flow/:id/description.
type DescriptionResponse struct {
	Description string `json:"description"`
}

// DIMLRequest is the JSON form of a DIML upload. A non-JSON body is taken
// as the document itself.
type DIMLRequest struct {
	DIML string `json:"diml"`
}

func (s *Server) generateFlows(c *gin.Context) {
	flows, err := s.intents.GenerateFlows(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, "Failed to generate deep flows", err)
		return
	}
	if flows == nil {
		flows = []domain.Flow{}
	}
	c.JSON(http.StatusCreated, FlowsResponse{Flows: flows, Count: len(flows)})
}

func (s *Server) getFlow(c *gin.Context) {
	flow, err := s.intents.GetFlow(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, "Failed to get deep flow", err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) deleteFlow(c *gin.Context) {
	if err := s.intents.DeleteFlow(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, "Failed to delete deep flow", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) exportDIML(c *gin.Context) {
	text, err := s.intents.ExportDIML(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, "Failed to export DIML", err)
		return
	}
	c.Data(http.StatusOK, contentTypeXML, []byte(text))
}

func (s *Server) generateDIML(c *gin.Context) {
	text, err := s.intents.GenerateDIML(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, "Failed to generate DIML", err)
		return
	}
	c.Data(http.StatusOK, contentTypeXML, []byte(text))
}

func (s *Server) describeFlow(c *gin.Context) {
	desc, err := s.intents.DescribeFlow(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, "Failed to get natural language description", err)
		return
	}
	c.JSON(http.StatusOK, DescriptionResponse{Description: desc})
}

func (s *Server) validateDIML(c *gin.Context) {
	text, ok := s.readDIML(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.intents.ValidateDIML(text))
}

func (s *Server) importDIML(c *gin.Context) {
	text, ok := s.readDIML(c)
	if !ok {
		return
	}
	flow, err := s.intents.ImportDIML(c.Request.Context(), text)
	if err != nil {
		s.respondError(c, "Failed to import DIML", err)
		return
	}
	c.JSON(http.StatusCreated, flow)
}

// readDIML returns the uploaded document, writing a 400 when there is none.
func (s *Server) readDIML(c *gin.Context) (string, bool) {
	var text string
	if c.ContentType() == gin.MIMEJSON {
		var req DIMLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, "Invalid JSON body")
			return "", false
		}
		text = req.DIML
	} else {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			s.badRequest(c, "Unreadable request body")
			return "", false
		}
		text = string(body)
	}

	if text == "" {
		s.badRequest(c, "DIML document is required")
		return "", false
	}
	return text, true
}
