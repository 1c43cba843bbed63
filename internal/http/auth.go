package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param input body credentialsReq true "Credentials"
// @Success 201 {object} auth.User
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := s.auth.Register(req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param input body credentialsReq true "Credentials"
// @Success 200 {object} auth.Session
// @Failure 401 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /auth/login [post]
func (s *Server) loginUser(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// @Summary Admin login
// @Tags auth
// @Accept json
// @Produce json
// @Param input body credentialsReq true "Credentials"
// @Success 200 {object} auth.Session
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /auth/admin/login [post]
func (s *Server) loginAdmin(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, err := s.auth.AdminLogin(req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
