// Package errors define el contrato de errores HTTP del servicio.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError serializa un error como respuesta JSON. Errores de repository
// se mapean a su status; cualquier otro error desconocido es un 500 y se
// loguea con su causa.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := mapError(err)

	if appErr.HTTPStatus >= 500 {
		logger.From(r.Context()).Error("request failed",
			logger.Path(r.URL.Path),
			logger.Err(appErr.Err),
		)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

func mapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound.WithCause(err)
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict.WithCause(err)
	case errors.Is(err, repository.ErrTerminal):
		return ErrTaskAlreadyTerminal.WithCause(err)
	case errors.Is(err, repository.ErrInvalidInput):
		return ErrBadRequest.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}
