package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

// @Summary My orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Order
// @Failure 401 {object} map[string]string
// @Router /orders [get]
func (s *Server) listMyOrders(c *gin.Context) {
	list, err := s.orders.ListForUser(c, viewerFrom(c).UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get order by id
// @Description Owner or admin only.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c, c.Param("id"), viewerFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary All orders
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Order
// @Router /admin/orders [get]
func (s *Server) listAllOrders(c *gin.Context) {
	list, err := s.orders.ListOrders(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type statusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// @Summary Change order status
// @Description Forward-only: Pending, Processing, Shipped, Delivered; Cancelled from Pending or Processing.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body statusReq true "New status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/status [post]
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	claims, _ := claimsFrom(c)
	o, err := s.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, claims.Email)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Status history
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {array} orderlog.StatusChange
// @Router /admin/orders/{id}/history [get]
func (s *Server) orderHistory(c *gin.Context) {
	h, err := s.orders.History(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

// @Summary Delete order
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	claims, _ := claimsFrom(c)
	if err := s.orders.DeleteOrder(c, c.Param("id"), claims.Email); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
