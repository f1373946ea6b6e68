package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"

	"github.com/edvin/oportunia/internal/model"
)

const tokenTTL = 24 * time.Hour

// AuthService issues and validates the HS256 session tokens used by the API.
// There is a single admin account configured through the environment; end
// users arrive with tokens minted by the same secret.
type AuthService struct {
	jwtSecret         []byte
	jwtIssuer         string
	adminEmail        string
	adminPasswordHash string
	now               func() time.Time
}

func NewAuthService(jwtSecret, jwtIssuer, adminEmail, adminPasswordHash string) *AuthService {
	return &AuthService{
		jwtSecret:         []byte(jwtSecret),
		jwtIssuer:         jwtIssuer,
		adminEmail:        adminEmail,
		adminPasswordHash: adminPasswordHash,
		now:               time.Now,
	}
}

// Login authenticates the admin, returning a JWT on success.
func (s *AuthService) Login(email, password string) (string, error) {
	if s.adminEmail == "" || s.adminPasswordHash == "" {
		return "", ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(s.adminEmail))) != 1 {
		return "", ErrUnauthorized
	}
	if !verifyArgon2(password, s.adminPasswordHash) {
		return "", ErrUnauthorized
	}

	token, err := s.IssueToken("admin", s.adminEmail, model.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// IssueToken creates a signed JWT for subject.
func (s *AuthService) IssueToken(subject, email, role string) (string, error) {
	now := s.now()
	claims := model.JWTClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*model.JWTClaims, error) {
	var claims model.JWTClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}
	return &claims, nil
}

// HashPassword returns a PHC-format argon2id hash suitable for
// ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	const (
		memory      = 64 * 1024
		iterations  = 3
		parallelism = 4
	)
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, 32)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key)), nil
}

// verifyArgon2 checks a password against a PHC-format argon2id hash.
// Format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func verifyArgon2(password, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	paramParts := strings.Split(parts[3], ",")
	if len(paramParts) != 3 {
		return false
	}
	memory, err := parseParam(paramParts[0], "m=")
	if err != nil {
		return false
	}
	iterations, err := parseParam(paramParts[1], "t=")
	if err != nil {
		return false
	}
	parallelism, err := parseParam(paramParts[2], "p=")
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, uint32(iterations), uint32(memory), uint8(parallelism), uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}

func parseParam(s, prefix string) (int, error) {
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("missing prefix %s", prefix)
	}
	return strconv.Atoi(s[len(prefix):])
}
