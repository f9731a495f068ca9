// Package utils 提供通用工具函数
package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// clockSkew 签发方与本服务之间允许的时钟偏差
const clockSkew = 30 * time.Second

// Claims 外部身份服务签发的声明，身份键取 email，缺省时回退到 sub
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity 返回规范化后的身份键
func (c *Claims) Identity() string {
	if id := normalizeIdentity(c.Email); id != "" {
		return id
	}
	return normalizeIdentity(c.Subject)
}

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// JWTManager 校验 HS256 Token
type JWTManager struct {
	key    []byte
	issuer string
	parser *jwt.Parser
}

func NewJWTManager(secret, issuer string) *JWTManager {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkew),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTManager{key: []byte(secret), issuer: issuer, parser: jwt.NewParser(opts...)}
}

// IssueToken 为邮箱签发 Token，供测试与本地联调使用
func (m *JWTManager) IssueToken(email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: normalizeIdentity(email),
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   normalizeIdentity(email),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

// ParseToken 校验签名、算法、签发方与有效期，并要求存在身份键
func (m *JWTManager) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, m.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.Identity() == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *JWTManager) keyFunc(*jwt.Token) (any, error) {
	return m.key, nil
}
