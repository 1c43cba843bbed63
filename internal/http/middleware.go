package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/service"
)

const claimsKey = "claims"

// authenticate разбирает Bearer-токен. Битый токен - всегда 401;
// отсутствие токена - 401 только при required.
func (s *Server) authenticate(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required", "redirect": checkout.RouteLogin})
				return
			}
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}
		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "redirect": checkout.RouteLogin})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func identityFrom(c *gin.Context) *checkout.Identity {
	claims, ok := claimsFrom(c)
	if !ok {
		return nil
	}
	return &checkout.Identity{UserID: claims.UserID, Email: claims.Email}
}

func viewerFrom(c *gin.Context) service.Viewer {
	claims, ok := claimsFrom(c)
	if !ok {
		return service.Viewer{}
	}
	return service.Viewer{UserID: claims.UserID, Admin: claims.Role == auth.RoleAdmin}
}

// requirePermission casbin-проверка роли из токена; ставится после authenticate(true)
func (s *Server) requirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		allowed, err := s.authorizer.Allow(claims.Role, resource, action)
		if err != nil {
			s.logger.ErrorContext(c.Request.Context(), "authorization check failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ipLimiter token bucket на IP клиента
type ipLimiter struct {
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	return &ipLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		ttl:     30 * time.Minute,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cl, ok := l.clients[ip]
	if !ok {
		l.evict(now)
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = cl
	}
	cl.last = now
	return cl.limiter.AllowN(now, 1)
}

// evict давно неактивные IP; вызывается при появлении нового клиента
func (l *ipLimiter) evict(now time.Time) {
	for ip, cl := range l.clients {
		if now.Sub(cl.last) > l.ttl {
			delete(l.clients, ip)
		}
	}
}

func (s *Server) rateLimit(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func cartIDFrom(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(cartHeader))
	if id == "" || len(id) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": cartHeader + " header required"})
		return "", false
	}
	return id, true
}
