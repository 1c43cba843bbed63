package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

// @Summary Homepage banners
// @Tags banners
// @Produce json
// @Success 200 {object} domain.BannerSet
// @Router /banners [get]
func (s *Server) getBanners(c *gin.Context) {
	b, err := s.banners.Get(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary Upload banner image
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param slot path string true "main, sub1 or sub2"
// @Param file formData file true "Image"
// @Success 200 {object} domain.BannerSet
// @Failure 400 {object} map[string]string
// @Router /admin/banners/{slot} [put]
func (s *Server) uploadBanner(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	b, err := s.banners.Upload(c, domain.BannerSlot(c.Param("slot")), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
