package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/domain"
)

type cartResp struct {
	ID       string            `json:"id"`
	Items    []domain.CartItem `json:"items"`
	Subtotal string            `json:"subtotal"`
}

func toCartResp(c *cart.Cart) cartResp {
	items := c.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResp{ID: c.ID, Items: items, Subtotal: domain.FormatMoney(c.Subtotal())}
}

// @Summary Get cart
// @Tags cart
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Success 200 {object} cartResp
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	ct, err := s.carts.Load(c, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(ct))
}

// @Summary Clear cart
// @Tags cart
// @Param X-Cart-ID header string true "Cart ID"
// @Success 204
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	if err := s.carts.Delete(c, id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// @Summary Add product to cart
// @Description Name, price and image are taken from the catalog, not from the client.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Param input body addItemReq true "Item"
// @Success 200 {object} cartResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	p, err := s.products.GetByID(c, req.ProductID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ct, err := s.carts.Load(c, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	item := domain.CartItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: req.Quantity}
	if len(p.Images) > 0 {
		item.Image = p.Images[0]
	}
	if err := ct.Add(item); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.carts.Save(c, ct); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(ct))
}

type updateItemReq struct {
	Quantity int64 `json:"quantity"`
}

// @Summary Set line quantity
// @Description Quantity 0 or less removes the line.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Param id path string true "Product ID"
// @Param input body updateItemReq true "Quantity"
// @Success 200 {object} cartResp
// @Router /cart/items/{id} [patch]
func (s *Server) updateCartItem(c *gin.Context) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ct, err := s.carts.Load(c, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := ct.UpdateQuantity(c.Param("id"), req.Quantity); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.carts.Save(c, ct); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(ct))
}

// @Summary Remove line
// @Tags cart
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Param id path string true "Product ID"
// @Success 200 {object} cartResp
// @Router /cart/items/{id} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	ct, err := s.carts.Load(c, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ct.Remove(c.Param("id"))
	if err := s.carts.Save(c, ct); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(ct))
}
