package service

import (
	"errors"
	"fmt"
	"time"

	"memo-api/src/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken トークンが不正または期限切れ
	ErrInvalidToken = errors.New("invalid access token")
	// ErrMissingSecret 署名用のシークレットが未設定
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

const tokenTypeAccess = "access"

// JWTClaims JWT内のカスタムクレーム
type JWTClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// JWTService JWT管理サービスのインターフェース
type JWTService interface {
	GenerateAccessToken(subject string) (string, error)
	ValidateAccessToken(tokenString string) (string, error)
}

// jwtService JWT管理サービスの実装
type jwtService struct {
	config config.AuthConfig
}

// NewJWTService JWT管理サービスを作成
func NewJWTService(cfg config.AuthConfig) JWTService {
	return &jwtService{config: cfg}
}

// GenerateAccessToken アクセストークンを生成
func (s *jwtService) GenerateAccessToken(subject string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", ErrMissingSecret
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	now := time.Now()
	claims := &JWTClaims{
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWTExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// ValidateAccessToken アクセストークンを検証してsubjectを返す
func (s *jwtService) ValidateAccessToken(tokenString string) (string, error) {
	// 空の鍵で署名されたトークンを受け入れない
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingSecret)
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, options...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Type != tokenTypeAccess {
		return "", fmt.Errorf("%w: invalid token type", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}
