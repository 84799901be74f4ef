package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Sync triggers run inline with the request so the caller sees the outcome.
// The background worker runs the same operations on its own cadence; both
// paths share the checkpoint idempotency machinery, so overlap is harmless.

func (s *Server) TriggerEmailSync(c *gin.Context) {
	c.JSON(http.StatusOK, s.worker.RunEmailSync(c.Request.Context()))
}

func (s *Server) TriggerPaymentSync(c *gin.Context) {
	c.JSON(http.StatusOK, s.worker.RunPaymentSync(c.Request.Context()))
}

func (s *Server) TriggerWholesaleSync(c *gin.Context) {
	c.JSON(http.StatusOK, s.worker.RunWholesaleSync(c.Request.Context()))
}

func (s *Server) TriggerWholesaleOrderSync(c *gin.Context) {
	c.JSON(http.StatusOK, s.worker.RunWholesaleOrderSync(c.Request.Context(), c.Param("orderId")))
}

func (s *Server) TriggerAlertSweep(c *gin.Context) {
	c.JSON(http.StatusOK, s.worker.RunAlertSweep(c.Request.Context()))
}
