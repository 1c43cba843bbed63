package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
	"storefront/internal/service"
)

// respondCheckout при ошибке отдаёт и текущее состояние мастера, и redirect
func (s *Server) respondCheckout(c *gin.Context, view *service.CheckoutView, err error) {
	if err == nil {
		c.JSON(http.StatusOK, view)
		return
	}
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "checkout failed", "path", c.FullPath(), "error", err)
	}
	body := errorBody(err)
	if view != nil {
		if view.Step != "" {
			body["checkout"] = view
		}
		if view.Redirect != "" {
			body["redirect"] = view.Redirect
		}
	}
	c.JSON(status, body)
}

func (s *Server) applyCheckout(c *gin.Context, ev checkout.Event) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	view, err := s.checkout.Apply(c.Request.Context(), id, identityFrom(c), ev)
	s.respondCheckout(c, view, err)
}

// @Summary Start checkout
// @Description Starts the wizard at the shipping step. An empty cart redirects to "/".
// @Tags checkout
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Success 200 {object} service.CheckoutView
// @Failure 400 {object} map[string]any
// @Router /checkout [post]
func (s *Server) startCheckout(c *gin.Context) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	view, err := s.checkout.Start(c.Request.Context(), id, identityFrom(c))
	s.respondCheckout(c, view, err)
}

// @Summary Current checkout state
// @Tags checkout
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Success 200 {object} service.CheckoutView
// @Router /checkout [get]
func (s *Server) viewCheckout(c *gin.Context) {
	id, ok := cartIDFrom(c)
	if !ok {
		return
	}
	view, err := s.checkout.View(c.Request.Context(), id, identityFrom(c))
	s.respondCheckout(c, view, err)
}

// @Summary Submit shipping address
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Param input body checkout.ShippingForm true "Shipping"
// @Success 200 {object} service.CheckoutView
// @Failure 409 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /checkout/shipping [post]
func (s *Server) submitShipping(c *gin.Context) {
	var form checkout.ShippingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s.applyCheckout(c, checkout.SubmitShipping{Form: form})
}

// @Summary Submit payment method
// @Description Creates the Pending order and opens the verification window.
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Param input body checkout.PaymentForm true "Payment"
// @Success 200 {object} service.CheckoutView
// @Failure 401 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /checkout/payment [post]
func (s *Server) submitPayment(c *gin.Context) {
	var form checkout.PaymentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s.applyCheckout(c, checkout.SubmitPayment{Form: form})
}

// @Summary Submit verification
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Param input body checkout.VerificationForm true "OTP or transaction id"
// @Success 200 {object} service.CheckoutView
// @Failure 410 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /checkout/verify [post]
func (s *Server) submitVerification(c *gin.Context) {
	var form checkout.VerificationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s.applyCheckout(c, checkout.SubmitVerification{Form: form})
}

// @Summary Go back one step
// @Tags checkout
// @Produce json
// @Param X-Cart-ID header string true "Cart ID"
// @Success 200 {object} service.CheckoutView
// @Failure 409 {object} map[string]any
// @Router /checkout/back [post]
func (s *Server) checkoutBack(c *gin.Context) {
	s.applyCheckout(c, checkout.GoBack{})
}
