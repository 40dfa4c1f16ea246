package services

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/appErrors"
	"github.com/Yzori/Critvue-sub002/internal/auth"
	"github.com/Yzori/Critvue-sub002/internal/config"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
	"github.com/Yzori/Critvue-sub002/internal/services/dto"
)

type AuthService interface {
	Register(req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(req *dto.LoginRequest) (*dto.AuthResponse, error)
	Refresh(refreshToken string) (*dto.AuthResponse, error)
	Logout(refreshToken string) error
}

type authService struct {
	db       Database
	userRepo repositories.UserRepository
	jwtTTL   time.Duration
}

func NewAuthService(db Database, userRepo repositories.UserRepository, cfg *config.Config) AuthService {
	return &authService{
		db:       db,
		userRepo: userRepo,
		jwtTTL:   time.Duration(cfg.JWT.TTL) * time.Minute,
	}
}

// Register - регистрация нового пользователя
func (s *authService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.ErrWeakPassword
	}
	role := models.UserRole(req.Role)
	if role != models.UserRoleReviewer && role != models.UserRoleCreator {
		return nil, appErrors.ErrInvalidUserRole
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.InternalError(err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		Role:         role,
		Status:       models.UserStatusActive,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.FindByEmail(tx, req.Email); err == nil {
			return appErrors.ErrEmailExists
		} else if err != repositories.ErrUserNotFound {
			return err
		}
		return s.userRepo.Create(tx, user)
	})
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

// Login - вход по email и паролю
func (s *authService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.userRepo.FindByEmail(tx, req.Email)
		if err != nil {
			if err == repositories.ErrUserNotFound {
				return appErrors.ErrInvalidCredentials
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, appErrors.ErrInvalidCredentials
	}
	if user.Status == models.UserStatusSuspended || user.Status == models.UserStatusBanned {
		return nil, appErrors.NewForbiddenError("account is suspended")
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(refreshToken string) (*dto.AuthResponse, error) {
	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stored, err := s.userRepo.FindRefreshToken(tx, refreshToken)
		if err != nil {
			if err == repositories.ErrUserNotFound {
				return appErrors.ErrInvalidToken
			}
			return err
		}
		if stored.ExpiresAt.Before(time.Now()) {
			return appErrors.ErrInvalidToken
		}
		user, err = s.userRepo.FindByID(tx, stored.UserID)
		if err != nil {
			return err
		}
		// Ротация: старый refresh токен аннулируется
		return s.userRepo.DeleteRefreshToken(tx, refreshToken)
	})
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *authService) Logout(refreshToken string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.userRepo.DeleteRefreshToken(tx, refreshToken)
	})
}

func (s *authService) issueTokens(user *models.User) (*dto.AuthResponse, error) {
	token, err := auth.GenerateToken(user.ID, string(user.Role), s.jwtTTL)
	if err != nil {
		return nil, appErrors.InternalError(err)
	}

	refresh := generateRandomToken()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.userRepo.CreateRefreshToken(tx, &models.RefreshToken{
			UserID:    user.ID,
			Token:     refresh,
			ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token:        token,
		RefreshToken: refresh,
		User: &dto.UserResponse{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Role:        user.Role,
			Status:      user.Status,
			PayoutReady: user.PayoutReady,
			CreatedAt:   user.CreatedAt,
		},
	}, nil
}

func generateRandomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
