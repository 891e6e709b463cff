package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/campuspulse-backend/internal/domain/auth"
	"github.com/yungbote/campuspulse-backend/internal/platform/apierr"
	"github.com/yungbote/campuspulse-backend/internal/platform/ctxutil"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credential is one institutional login. Secrets are stored as bcrypt hashes.
type Credential struct {
	ID         string    `yaml:"id"`
	SecretHash string    `yaml:"secret_hash"`
	Role       auth.Role `yaml:"role"`
}

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, id, secret string) (string, auth.Role, error)
	IssueToken(subject string, role auth.Role) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	credentials  map[string]Credential
	jwtSecretKey string
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(log *logger.Logger, credentials []Credential, jwtSecretKey string, accessTTL time.Duration) (AuthService, error) {
	serviceLog := log.With("service", "AuthService")
	if strings.TrimSpace(jwtSecretKey) == "" {
		return nil, fmt.Errorf("jwt secret key is required")
	}
	byID := make(map[string]Credential, len(credentials))
	for _, c := range credentials {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("credential with empty id")
		}
		if !c.Role.Institutional() {
			return nil, fmt.Errorf("credential %q: role %q cannot log in with a secret", id, c.Role)
		}
		if _, err := bcrypt.Cost([]byte(c.SecretHash)); err != nil {
			return nil, fmt.Errorf("credential %q: secret_hash is not a bcrypt hash: %w", id, err)
		}
		byID[id] = c
	}
	if len(byID) == 0 {
		serviceLog.Warn("no institutional credentials configured; campus endpoints are unreachable")
	}
	return &authService{
		log:          serviceLog,
		credentials:  byID,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		now:          time.Now,
	}, nil
}

func (as *authService) Login(ctx context.Context, id, secret string) (string, auth.Role, error) {
	id = strings.TrimSpace(id)
	if id == "" || secret == "" {
		return "", "", apierr.BadRequest("missing_credentials", fmt.Errorf("id and secret are required"))
	}
	cred, ok := as.credentials[id]
	if !ok {
		as.log.Debug("login for unknown id")
		return "", "", apierr.Unauthorized("invalid_credentials", ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)); err != nil {
		as.log.Debug("login with wrong secret")
		return "", "", apierr.Unauthorized("invalid_credentials", ErrInvalidCredentials)
	}
	tok, err := as.IssueToken(cred.ID, cred.Role)
	if err != nil {
		return "", "", fmt.Errorf("issue token: %w", err)
	}
	return tok, cred.Role, nil
}

func (as *authService) IssueToken(subject string, role auth.Role) (string, error) {
	now := as.now()
	claims := JWTClaims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil || !token.Valid {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid token"))
	}
	role, ok := auth.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid token claims"))
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{Subject: claims.Subject, Role: role.String()}), nil
}

func (as *authService) GetAccessTTL() time.Duration { return as.accessTTL }
