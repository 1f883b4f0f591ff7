package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New crea un AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Wrap crea un AppError envolviendo un error existente.
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetail retorna una COPIA del error con detalle adicional, para no
// mutar las variables base compartidas.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithCause retorna una copia del error con la causa adjunta.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Errores base reutilizables.
var (
	ErrBadRequest          = New(http.StatusBadRequest, "bad_request", "invalid request")
	ErrUnauthorized        = New(http.StatusUnauthorized, "unauthorized", "authentication required")
	ErrForbidden           = New(http.StatusForbidden, "forbidden", "insufficient permissions")
	ErrNotFound            = New(http.StatusNotFound, "not_found", "resource not found")
	ErrConflict            = New(http.StatusConflict, "conflict", "resource already exists")
	ErrTaskAlreadyTerminal = New(http.StatusConflict, "task_terminal", "task already reached a terminal state")
	ErrRateLimited         = New(http.StatusTooManyRequests, "rate_limited", "too many requests")
	ErrUpstreamTimeout     = New(http.StatusGatewayTimeout, "upstream_timeout", "upstream service timed out")
	ErrUpstream            = New(http.StatusBadGateway, "upstream_error", "upstream service error")
	ErrInternalServerError = New(http.StatusInternalServerError, "internal_error", "internal server error")
)

// FromError convierte un error genérico en *AppError; los desconocidos se
// vuelven 500 conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}
