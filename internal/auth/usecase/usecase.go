package usecase

import (
	authdomain "dabble-backend/internal/auth/domain"
	authdto "dabble-backend/internal/auth/dto"
)

// AuthUsecase defines account and session operations
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(token string) (*authdomain.User, error)
}
