// Package jwt emite y valida los tokens de sesión del servicio.
// Firma simétrica HS256 con un único secret compartido: no hay rotación
// de claves ni federación, un secret por despliegue alcanza.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("jwt: invalid token")
	ErrInvalidIssuer = errors.New("jwt: invalid issuer")
)

// SessionClaims son las claims de un token de sesión.
type SessionClaims struct {
	UserID   int64  `json:"uid"`
	TenantID int64  `json:"tid"`
	Username string `json:"sub"`

	Issuer    string `json:"iss"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Issuer firma y valida tokens de sesión.
type Issuer struct {
	iss    string
	secret []byte
	ttl    time.Duration
}

// NewIssuer crea un Issuer. ttl <= 0 usa 24h.
func NewIssuer(iss, secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{iss: iss, secret: []byte(secret), ttl: ttl}, nil
}

// Sign emite un token de sesión para el usuario dado.
func (i *Issuer) Sign(userID, tenantID int64, username string) (string, error) {
	now := time.Now()
	claims := jwtv5.MapClaims{
		"iss": i.iss,
		"sub": username,
		"uid": userID,
		"tid": tenantID,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Parse valida firma, exp/nbf e issuer, y devuelve las claims de sesión.
func (i *Issuer) Parse(token string) (*SessionClaims, error) {
	tok, err := jwtv5.Parse(token,
		func(t *jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != i.iss {
		return nil, ErrInvalidIssuer
	}

	out := &SessionClaims{Issuer: i.iss}
	if sub, ok := claims["sub"].(string); ok {
		out.Username = sub
	}
	if uid, ok := claims["uid"].(float64); ok {
		out.UserID = int64(uid)
	}
	if tid, ok := claims["tid"].(float64); ok {
		out.TenantID = int64(tid)
	}
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = int64(iat)
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = int64(exp)
	}
	if out.Username == "" || out.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return out, nil
}

// TTL retorna el tiempo de vida configurado de los tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }
