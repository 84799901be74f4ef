package server

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAlerts(c *gin.Context) {
	includeResolved := c.Query("include_resolved") == "true"

	alerts, err := s.alertSvc.List(c.Request.Context(), includeResolved)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

func (s *Server) ResolveAlert(c *gin.Context) {
	raw := c.Param("alertId")
	id, err := snowflake.ParseString(raw)
	if err != nil {
		invalidRequest(c, fmt.Errorf("invalid alert id %q", raw))
		return
	}

	alert, err := s.alertSvc.Resolve(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert})
}
