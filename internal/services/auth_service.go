package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"

	"ppcp-backend/internal/auth"
	"ppcp-backend/internal/cache"
	"ppcp-backend/internal/models"
)

// ErrInvalidCredentials never says which of username or password was wrong
var ErrInvalidCredentials = errors.New("Credenciais inválidas")

// AuthService checks the single shared account and issues session tokens
type AuthService struct {
	Username     string
	PasswordHash string
	JWT          *auth.JWTManager
}

func NewAuthService(username, passwordHash string, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		Username:     username,
		PasswordHash: passwordHash,
		JWT:          jwtManager,
	}
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.Username)) == 1

	passOK := cache.GetCachedLogin(ctx, s.PasswordHash, req.Username, req.Password)
	if !passOK {
		// bcrypt runs even for a wrong username so timing does not reveal it
		passOK = auth.VerifyPassword(s.PasswordHash, req.Password)
	}

	if !userOK || !passOK {
		log.Printf("[Auth] Failed login attempt")
		return nil, ErrInvalidCredentials
	}
	cache.CacheLogin(ctx, s.PasswordHash, req.Username, req.Password)

	token, expiresAt, err := s.JWT.GenerateToken(s.Username)
	if err != nil {
		return nil, err
	}

	log.Printf("[Auth] %s logged in", s.Username)
	return &models.AuthResponse{
		Token:     token,
		Username:  s.Username,
		ExpiresAt: expiresAt,
	}, nil
}
