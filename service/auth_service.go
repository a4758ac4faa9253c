package service

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"device-management-api/config"
	"device-management-api/logger"
	"device-management-api/model"
	"device-management-api/repository"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Business-rule failures surfaced by AuthService. Handlers map these onto
// HTTP statuses; anything else is a store failure.
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role specified")
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrTokenExpired       = errors.New("refresh token expired")
)

// refreshTokenBytes is the entropy of a raw refresh token (256 bits).
const refreshTokenBytes = 32

// Session is the result of a successful login or refresh: the authenticated
// user, a signed access token and the raw refresh token for the cookie.
type Session struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// AuthService owns credential verification and the refresh token lifecycle.
type AuthService struct {
	userRepo  repository.IUserRepository
	tokenRepo repository.ITokenRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.IUserRepository, tokenRepo repository.ITokenRepository) *AuthService {
	return &AuthService{userRepo: userRepo, tokenRepo: tokenRepo}
}

func getJwtKey() []byte {
	return []byte(config.AppConfig.JWT.SecretKey)
}

func accessTokenTTL() time.Duration {
	return time.Duration(config.AppConfig.JWT.AccessTTLMinutes) * time.Minute
}

func refreshTokenTTL() time.Duration {
	return time.Duration(config.AppConfig.JWT.RefreshTTLDays) * 24 * time.Hour
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), err
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Register creates a new user with a hashed password. An empty role defaults
// to model.RoleUser; anything outside the closed role set is rejected.
// Username uniqueness is enforced by the store's constraint, so two
// concurrent registrations of the same name cannot both succeed.
func (s *AuthService) Register(username, password string, role model.Role) (*model.User, error) {
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hashedPassword, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
	}
	if err := s.userRepo.CreateUser(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	logger.Log.WithField("username", user.Username).Info("User registered")
	return user, nil
}

// Login verifies the credentials and opens a session: a short-lived access
// token plus a fresh refresh token whose hash is persisted.
func (s *AuthService) Login(username, password, ip string) (*Session, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !s.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	rawRefresh, record, err := newRefreshToken(user.ID, ip)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Create(record); err != nil {
		return nil, err
	}

	logger.Log.WithField("username", user.Username).Info("User logged in")
	return &Session{User: user, AccessToken: accessToken, RefreshToken: rawRefresh}, nil
}

// Refresh validates a presented refresh token and rotates it: the old record
// is revoked with a pointer to its successor, and a new access token is
// issued. Replaying a token that was already rotated is treated as a theft
// signal and revokes every live token the account holds.
func (s *AuthService) Refresh(rawToken, ip string) (*Session, error) {
	tokenHash := hashRefreshToken(rawToken)

	record, err := s.tokenRepo.GetByTokenHash(tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	if record.IsRevoked() {
		logger.Log.WithFields(logrus.Fields{
			"user_id": record.UserID,
			"ip":      ip,
		}).Warn("Revoked refresh token replayed; revoking all tokens for user")
		if _, err := s.tokenRepo.RevokeAllForUser(record.UserID, now, ip); err != nil {
			return nil, err
		}
		return nil, ErrTokenRevoked
	}
	if record.IsExpired(now) {
		return nil, ErrTokenExpired
	}

	user, err := s.userRepo.GetUserByID(record.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	rawRefresh, next, err := newRefreshToken(record.UserID, ip)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Rotate(tokenHash, now, ip, next); err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyRevoked) {
			// A concurrent rotation on the same token committed first.
			return nil, ErrTokenRevoked
		}
		return nil, err
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, AccessToken: accessToken, RefreshToken: rawRefresh}, nil
}

// Logout revokes the presented refresh token. It is idempotent: an unknown
// or already-revoked token is a no-op.
func (s *AuthService) Logout(rawToken, ip string) error {
	if rawToken == "" {
		return nil
	}
	_, err := s.tokenRepo.Revoke(hashRefreshToken(rawToken), time.Now().UTC(), ip)
	return err
}

func (s *AuthService) generateAccessToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &model.AppClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(getJwtKey())
	if err != nil {
		logger.Log.WithError(err).WithField("username", user.Username).Error("Failed to sign JWT")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}

	return tokenString, nil
}

// newRefreshToken builds a fresh token: the raw value goes to the client,
// only its hash is persisted.
func newRefreshToken(userID int, ip string) (string, *model.RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)

	record := &model.RefreshToken{
		UserID:      userID,
		TokenHash:   hashRefreshToken(raw),
		CreatedByIP: ip,
		ExpiresAt:   time.Now().UTC().Add(refreshTokenTTL()),
	}
	return raw, record, nil
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
