package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/mailer"
	"github.com/stoqhq/stoq-backend/internal/models"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrSessionInvalidated  = errors.New("session invalidated")
	ErrUserNotFound        = errors.New("user not found")
	ErrVerificationExpired = errors.New("verification token expired")
	ErrAlreadyVerified     = errors.New("email already verified")
)

// TokenPair is one access/refresh credential set. The refresh token is also
// persisted server-side; only the latest pair per user stays valid.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer mailer.Mailer
}

func NewAuthService(db *gorm.DB, cfg *config.Config, m mailer.Mailer) *AuthService {
	return &AuthService{db: db, cfg: cfg, mailer: m}
}

func (s *AuthService) Signup(req *dto.SignupRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 6 {
		return nil, errors.New("email required and password must be at least 6 characters")
	}

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	businessName := strings.TrimSpace(req.BusinessName)
	if businessName == "" && name != "" {
		businessName = name + "'s Store"
	}

	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}
	tokenExpiry := time.Now().Add(24 * time.Hour)

	user := models.User{
		ID:                    uuid.New(),
		Email:                 email,
		Password:              string(hash),
		Name:                  name,
		BusinessName:          businessName,
		Role:                  models.RoleCustomer,
		Plan:                  models.PlanFree,
		VerificationToken:     &token,
		VerificationExpiresAt: &tokenExpiry,
	}

	if err := s.db.Create(&user).Error; err != nil {
		// The pre-check above races with concurrent signups (and skips
		// soft-deleted rows the unique index still holds), so a failed
		// insert on a taken email maps to the same conflict error.
		var count int64
		s.db.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count)
		if count > 0 {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Delivery failure must not fail the signup; the user can re-request.
	if err := s.mailer.SendVerificationEmail(user.Email, user.Name, token); err != nil {
		slog.Error("verification email dispatch failed", "user_id", user.ID.String(), "error", err)
	}

	return &user, nil
}

func (s *AuthService) Login(req *dto.LoginRequest) (*models.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		return nil, nil, ErrEmailNotVerified
	}

	pair, err := s.IssueTokenPair(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// IssueTokenPair mints a fresh access+refresh pair and overwrites the user's
// persisted refresh token. Logging in elsewhere invalidates the prior session.
func (s *AuthService) IssueTokenPair(user *models.User) (*TokenPair, error) {
	accessToken, err := s.signToken(user.ID, s.cfg.JWTAccessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.signToken(user.ID, s.cfg.JWTRefreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "expires_at", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshAccess validates a refresh token against the server-persisted copy
// and mints a new access token. The refresh token itself is not rotated.
func (s *AuthService) RefreshAccess(refreshToken string) (*models.User, string, error) {
	userID, err := s.ParseToken(refreshToken)
	if err != nil {
		return nil, "", ErrInvalidToken
	}

	var stored models.RefreshToken
	if err := s.db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, "", ErrSessionInvalidated
	}

	if time.Now().After(stored.ExpiresAt) {
		s.db.Delete(&stored)
		return nil, "", ErrSessionInvalidated
	}

	presented := hashToken(refreshToken)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored.TokenHash)) != 1 {
		return nil, "", ErrSessionInvalidated
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, "", ErrUserNotFound
	}

	accessToken, err := s.signToken(user.ID, s.cfg.JWTAccessExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return &user, accessToken, nil
}

// Logout deletes the persisted refresh token. The cookie is decoded solely to
// learn which user's session to revoke; a missing or garbled token is a no-op.
func (s *AuthService) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	userID, err := s.ParseToken(refreshToken)
	if err != nil {
		return nil
	}
	return s.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

func (s *AuthService) VerifyEmail(token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.Where("verification_token = ?", token).First(&user).Error; err != nil {
		return nil, ErrInvalidToken
	}

	if user.VerificationExpiresAt == nil || time.Now().After(*user.VerificationExpiresAt) {
		return nil, ErrVerificationExpired
	}

	err := s.db.Model(&user).Updates(map[string]interface{}{
		"is_email_verified":       true,
		"verification_token":      nil,
		"verification_expires_at": nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}

	user.IsEmailVerified = true
	user.VerificationToken = nil
	user.VerificationExpiresAt = nil
	return &user, nil
}

func (s *AuthService) ResendVerification(email string) error {
	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return ErrUserNotFound
	}

	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}
	tokenExpiry := time.Now().Add(24 * time.Hour)

	err = s.db.Model(&user).Updates(map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": tokenExpiry,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(user.Email, user.Name, token); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func (s *AuthService) GetUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// ParseToken verifies signature and expiry, returning the subject user id.
func (s *AuthService) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	return uuid.Parse(sub)
}

func (s *AuthService) signToken(userID uuid.UUID, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
