package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	shipmentdomain "github.com/cfcdist/orderflow/internal/shipment/domain"
)

func (s *Server) ListOrderShipments(c *gin.Context) {
	shipments, err := s.shipmentSvc.ListByOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipments": shipments, "count": len(shipments)})
}

type transitionShipmentRequest struct {
	Status string `json:"status"`
}

func (s *Server) TransitionShipment(c *gin.Context) {
	var req transitionShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	status, err := shipmentdomain.ParseStatus(req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	shipment, err := s.shipmentSvc.Transition(c.Request.Context(), c.Param("shipmentId"), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipment": shipment})
}
