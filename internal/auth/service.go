package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	tokenTTL          = 24 * time.Hour
	minPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotAdmin           = errors.New("not an admin account")
	ErrWeakPassword       = errors.New("password too short")
)

// User учётная запись. PasswordHash наружу не отдаётся.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	PasswordHash []byte `json:"-"`
}

// Claims полезная нагрузка токена
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Session результат входа
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Config параметры сервиса аутентификации
type Config struct {
	Secret        []byte
	AdminEmail    string
	AdminPassword string
	Now           func() time.Time
}

// Service регистрация, вход и проверка токенов.
// Роль admin получает только учётная запись с AdminEmail.
type Service struct {
	secret     []byte
	adminEmail string
	now        func() time.Time

	mu      sync.RWMutex
	byEmail map[string]*User
}

func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: empty jwt secret")
	}
	s := &Service{
		secret:     cfg.Secret,
		adminEmail: normalizeEmail(cfg.AdminEmail),
		now:        cfg.Now,
		byEmail:    make(map[string]*User),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.adminEmail != "" && cfg.AdminPassword != "" {
		if _, err := s.register(s.adminEmail, cfg.AdminPassword, RoleAdmin); err != nil {
			return nil, fmt.Errorf("auth: seed admin: %w", err)
		}
	}
	return s, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт покупателя с bcrypt-хешем пароля. Адрес администратора
// зарезервирован: его учётная запись создаётся только в NewService.
func (s *Service) Register(email, password string) (*User, error) {
	if s.adminEmail != "" && normalizeEmail(email) == s.adminEmail {
		return nil, ErrEmailTaken
	}
	return s.register(email, password, RoleCustomer)
}

func (s *Service) register(email, password, role string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	u := &User{ID: uuid.NewString(), Email: email, Role: role, PasswordHash: hash}
	s.byEmail[email] = u
	cp := *u
	return &cp, nil
}

// Login проверяет пароль и выдаёт токен
func (s *Service) Login(email, password string) (*Session, error) {
	s.mu.RLock()
	u, ok := s.byEmail[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.generateJWT(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: *u}, nil
}

// AdminLogin как Login, но только для администратора
func (s *Service) AdminLogin(email, password string) (*Session, error) {
	if normalizeEmail(email) != s.adminEmail {
		return nil, ErrNotAdmin
	}
	sess, err := s.Login(email, password)
	if err != nil {
		return nil, err
	}
	if sess.User.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	return sess, nil
}

// ValidateToken разбирает токен и возвращает его claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) generateJWT(u *User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
