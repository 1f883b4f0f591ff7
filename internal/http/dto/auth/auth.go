// Package auth contiene DTOs para endpoints de autenticación.
package auth

// RegisterRequest representa la solicitud de registro.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	TenantID int64  `json:"tenant_id,omitempty"` // default 1 (tenant por defecto)
}

// UserResponse es la vista pública de un usuario.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	TenantID int64  `json:"tenant_id"`
	IsActive bool   `json:"is_active"`
}

// LoginRequest representa la solicitud de login por password.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse representa la respuesta exitosa de login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // "bearer"
	ExpiresIn   int64  `json:"expires_in"` // segundos
}
