package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

// Users is the account store behind /auth.
type Users interface {
	Create(ctx context.Context, email, password string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

type GormUsers struct {
	DB *gorm.DB
}

func (s *GormUsers) Create(ctx context.Context, email, password string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u := User{Email: NormalizeEmail(email), PasswordHash: hash}
	if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}
	return u, nil
}

func (s *GormUsers) Authenticate(ctx context.Context, email, password string) (User, error) {
	var u User
	if err := s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("auth: find user: %w", err)
	}
	if !ComparePassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
