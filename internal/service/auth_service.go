package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

// AuthService authenticates the shared editor account. There are no per-user
// records: one username/password pair from the environment unlocks the editor,
// and every issued token carries the admin role.
type AuthService struct {
	username     string
	passwordHash []byte
	jwtSecret    string
	tokenTTL     time.Duration
}

func NewAuthService(cfg *config.Config) *AuthService {
	s := &AuthService{
		username:  cfg.AdminUsername,
		jwtSecret: cfg.JWTSecret,
		tokenTTL:  time.Duration(cfg.TokenTTLHours) * time.Hour,
	}

	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD is not set, editor endpoints are locked", nil)
		return s
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error(err, "Failed to hash admin password, editor endpoints are locked", nil)
		return s
	}

	s.passwordHash = hash
	return s
}

// Locked reports whether the editor account is unusable because no password
// was configured.
func (s *AuthService) Locked() bool {
	return len(s.passwordHash) == 0
}

func (s *AuthService) Login(req models.LoginRequest) (*models.AuthResponse, error) {
	if s.Locked() {
		return nil, ErrEditorLocked
	}

	if req.Username != s.username {
		// Keep timing uniform across the two failure paths.
		_ = bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenTTL)

	token, err := s.generateToken(expiresAt)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token:     token,
		Username:  s.username,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

func (s *AuthService) generateToken(expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  s.username,
		"role": "admin",
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
}
