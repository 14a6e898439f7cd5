package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBanned      = errors.New("account is banned")
	ErrSessionRevoked     = errors.New("session revoked or expired")
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// Service handles credential verification, token issuance and the
// server-side session records that make bearer tokens revocable.
type Service struct {
	jwtSecret   []byte
	tokenExpiry time.Duration
}

// NewService creates a new authentication service
func NewService(jwtSecret []byte, tokenExpiry time.Duration) *Service {
	if tokenExpiry <= 0 {
		tokenExpiry = 7 * 24 * time.Hour
	}
	return &Service{jwtSecret: jwtSecret, tokenExpiry: tokenExpiry}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ValidateUsername checks the registration username rules
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return errors.New("username must be 3-50 characters of letters, digits or underscores")
	}
	return nil
}

// ValidatePassword checks the registration password rules
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}

// Register creates a new user with email/password
func (s *Service) Register(req RegisterRequest) (*models.User, error) {
	if err := ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	var existing models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	err = database.DB.Where("LOWER(username) = LOWER(?)", req.Username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		FullName:     req.FullName,
		Role:         models.RoleUser,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// Login authenticates with email/password and issues a token plus its
// session record. Banned accounts are rejected before any token is minted.
func (s *Service) Login(req LoginRequest, userAgent, clientIP string) (*AuthResponse, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.IsBanned {
		return nil, ErrAccountBanned
	}

	now := time.Now().UTC()
	user.LastActiveAt = &now
	database.DB.Model(&user).UpdateColumn("last_active_at", now)

	return s.issueToken(&user, userAgent, clientIP)
}

// issueToken mints a JWT carrying sub + jti and persists the matching
// AuthSession row so the token can be revoked server-side.
func (s *Service) issueToken(user *models.User, userAgent, clientIP string) (*AuthResponse, error) {
	tokenID := uuid.New().String()
	expiresAt := time.Now().Add(s.tokenExpiry)

	claims := jwt.MapClaims{
		"sub":      user.ID,
		"jti":      tokenID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	session := models.AuthSession{
		TokenID:   tokenID,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		UserAgent: userAgent,
		ClientIP:  clientIP,
	}
	if err := database.DB.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a JWT, checks the session by jti and returns a
// fresh user. Banned users fail validation regardless of token state.
func (s *Service) ValidateToken(tokenString string) (*models.User, *models.AuthSession, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, nil, errors.New("invalid token claims")
	}

	userID, _ := claims["sub"].(string)
	tokenID, _ := claims["jti"].(string)
	if userID == "" || tokenID == "" {
		return nil, nil, errors.New("token missing sub or jti")
	}

	var session models.AuthSession
	if err := database.DB.Where("token_id = ?", tokenID).First(&session).Error; err != nil {
		return nil, nil, ErrSessionRevoked
	}
	if !session.Active(time.Now()) {
		return nil, nil, ErrSessionRevoked
	}

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, nil, ErrUserNotFound
	}

	if user.IsBanned {
		return nil, nil, ErrAccountBanned
	}

	return &user, &session, nil
}

// RevokeSession marks the session revoked; idempotent
func (s *Service) RevokeSession(tokenID string) error {
	now := time.Now().UTC()
	return database.DB.Model(&models.AuthSession{}).
		Where("token_id = ? AND revoked_at IS NULL", tokenID).
		UpdateColumn("revoked_at", now).Error
}

// RevokeUserSessions revokes every active session for a user
func (s *Service) RevokeUserSessions(userID string) error {
	now := time.Now().UTC()
	return database.DB.Model(&models.AuthSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		UpdateColumn("revoked_at", now).Error
}
