package wire

import (
	"net/http"

	"bidwhist/internal/domain"
)

// ErrMalformed rejects a message body that is not valid JSON for its op code.
var ErrMalformed = &domain.Error{Kind: domain.KindValidation, Msg: "malformed message"}

// ErrorDTO is sent to the offending controller only.
type ErrorDTO struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorFromErr classifies err for the client. Invariant and foreign errors
// are reported as internal without their details.
func ErrorFromErr(err error) ErrorDTO {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation:
		return ErrorDTO{Code: http.StatusBadRequest, Kind: string(kind), Message: err.Error()}
	case domain.KindTurn:
		return ErrorDTO{Code: http.StatusForbidden, Kind: string(kind), Message: err.Error()}
	case domain.KindRule:
		return ErrorDTO{Code: http.StatusUnprocessableEntity, Kind: string(kind), Message: err.Error()}
	case domain.KindState:
		return ErrorDTO{Code: http.StatusConflict, Kind: string(kind), Message: err.Error()}
	default:
		return ErrorDTO{Code: http.StatusInternalServerError, Kind: "internal", Message: "internal error"}
	}
}
