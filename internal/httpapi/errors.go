package httpapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/identity"
	"github.com/feelsunbreeze/student_dashboard/internal/predictor"
	"github.com/feelsunbreeze/student_dashboard/internal/report"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
	"github.com/feelsunbreeze/student_dashboard/internal/sheet"
)

// writeError maps errors from the core packages onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var (
		reqErr  *requestError
		missing *roster.MissingColumnError
		level   *predictor.UnknownLevelError
		verrs   validator.ValidationErrors
	)
	switch {
	case errors.As(err, &reqErr):
		s.writeJSONError(w, reqErr.Status, reqErr.Message, nil)
	case errors.As(err, &missing):
		s.writeJSONError(w, http.StatusUnprocessableEntity, missing.Error(), nil)
	case errors.Is(err, sheet.ErrUnsupportedFormat):
		s.writeJSONError(w, http.StatusUnsupportedMediaType, err.Error(), nil)
	case errors.Is(err, sheet.ErrNoHeader):
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag() + paramSuffix(fe.Param())
		}
		s.writeJSONError(w, http.StatusBadRequest, "invalid input", fields)
	case errors.As(err, &level):
		s.writeJSONError(w, http.StatusBadRequest, level.Error(), nil)
	case errors.Is(err, report.ErrUnknownKind):
		s.writeJSONError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, identity.ErrAuthentication):
		s.writeJSONError(w, http.StatusUnauthorized, identity.Message(err), nil)
	case errors.Is(err, identity.ErrRateLimited):
		s.writeJSONError(w, http.StatusTooManyRequests, identity.Message(err), nil)
	case errors.Is(err, identity.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		s.writeJSONError(w, http.StatusGatewayTimeout, identity.Message(err), nil)
	case errors.Is(err, identity.ErrNetwork),
		errors.Is(err, identity.ErrMalformedResponse),
		errors.Is(err, identity.ErrProvider):
		s.writeJSONError(w, http.StatusBadGateway, identity.Message(err), nil)
	default:
		s.log.Error("unhandled error", "err", err)
		s.writeJSONError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}
