// Package auth contiene los controllers de registro y login.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	dto "github.com/dropDatabas3/comfygate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/comfygate/internal/http/errors"
	"github.com/dropDatabas3/comfygate/internal/http/helpers"
	"github.com/dropDatabas3/comfygate/internal/http/middlewares"
	"github.com/dropDatabas3/comfygate/internal/jwt"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
	"github.com/dropDatabas3/comfygate/internal/security/password"
	"github.com/dropDatabas3/comfygate/internal/util"
	"github.com/dropDatabas3/comfygate/internal/validation"
)

// defaultTenantName es el tenant que se crea en el primer registro cuando
// nadie dio de alta uno explícitamente.
const defaultTenantName = "Default Tenant"

// Controller maneja register, login y el perfil de sesión.
type Controller struct {
	users   repository.UserRepository
	tenants repository.TenantRepository
	issuer  *jwt.Issuer
	policy  password.Policy
}

// New crea el controller de auth.
func New(users repository.UserRepository, tenants repository.TenantRepository, issuer *jwt.Issuer) *Controller {
	return &Controller{
		users:   users,
		tenants: tenants,
		issuer:  issuer,
		policy:  password.Policy{MinLength: 8, RequireLower: true, RequireDigit: true},
	}
}

// Register maneja POST /v1/auth/register.
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if !validation.ValidUsername(req.Username) {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("username inválido: minúsculas, dígitos, _ o -, largo 3..32"))
		return
	}
	if ok, reasons := c.policy.Validate(req.Password); !ok {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("password débil: "+strings.Join(reasons, ", ")))
		return
	}

	tenantID := req.TenantID
	if tenantID == 0 {
		tenantID = 1
	}
	if err := c.ensureTenant(r, tenantID); err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	hash, err := password.Hash(password.Default, req.Password)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	user, err := c.users.Create(ctx, repository.CreateUserInput{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		TenantID:     tenantID,
	})
	if err != nil {
		if repository.IsConflict(err) {
			httperrors.WriteError(w, r, httperrors.ErrConflict.WithDetail("username o email ya registrados"))
			return
		}
		httperrors.WriteError(w, r, err)
		return
	}

	log.Info("user registered",
		logger.UserID(user.ID),
		logger.TenantID(user.TenantID),
		logger.Email(util.MaskEmail(user.Email)))
	helpers.WriteJSON(w, http.StatusCreated, userResponse(user))
}

// ensureTenant garantiza que el tenant destino exista. Solo el tenant por
// defecto (id 1) se auto-crea; cualquier otro id inexistente es un 400.
func (c *Controller) ensureTenant(r *http.Request, tenantID int64) error {
	ctx := r.Context()
	_, err := c.tenants.GetByID(ctx, tenantID)
	if err == nil {
		return nil
	}
	if !repository.IsNotFound(err) {
		return err
	}
	if tenantID != 1 {
		return httperrors.ErrBadRequest.WithDetail("tenant inexistente")
	}
	if _, err := c.tenants.Create(ctx, defaultTenantName, nil); err != nil && !repository.IsConflict(err) {
		return err
	}
	return nil
}

// Login maneja POST /v1/auth/login.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))

	invalid := httperrors.ErrUnauthorized.WithDetail("credenciales inválidas")

	user, err := c.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if repository.IsNotFound(err) {
			// Verify contra un hash dummy para no delatar usuarios
			// inexistentes por timing.
			password.Verify(req.Password, dummyHash)
			httperrors.WriteError(w, r, invalid)
			return
		}
		httperrors.WriteError(w, r, err)
		return
	}
	if !user.IsActive || !password.Verify(req.Password, user.PasswordHash) {
		httperrors.WriteError(w, r, invalid)
		return
	}

	token, err := c.issuer.Sign(user.ID, user.TenantID, user.Username)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if err := c.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn("update last login failed", logger.UserID(user.ID), logger.Err(err))
	}

	log.Info("login ok", logger.UserID(user.ID), logger.TenantID(user.TenantID))
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(c.issuer.TTL().Seconds()),
	})
}

// Me maneja GET /v1/auth/me. Requiere sesión.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middlewares.GetSessionClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	user, err := c.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
			return
		}
		httperrors.WriteError(w, r, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, userResponse(user))
}

func userResponse(u *repository.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		TenantID: u.TenantID,
		IsActive: u.IsActive,
	}
}

// dummyHash es un PHC válido de una password aleatoria descartada.
var dummyHash = func() string {
	h, err := password.Hash(password.Default, "comfygate-dummy-login-filler")
	if err != nil {
		panic(errors.New("auth: dummy hash generation failed"))
	}
	return h
}()
