package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/irgordon/locker/api/internal/core/domain"
)

// Use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// HandleError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged with the request ID and reported as a generic 500.
func HandleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &validationErrs):
		writeError(w, http.StatusBadRequest, describeValidation(validationErrs))
	case errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, domain.ErrInvalidBlob):
		writeError(w, http.StatusBadRequest, "encryptedPassword must be a sealed cipher blob")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "Resource already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrAccountSuspended):
		writeError(w, http.StatusForbidden, "Account suspended")
	default:
		logger.Error("Unhandled request error",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func describeValidation(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "Validation failed: " + strings.Join(fields, ", ")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// decodeJSON rejects unknown fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func claimsFrom(r *http.Request) (*domain.UserClaims, bool) {
	claims, ok := r.Context().Value(domain.UserContextKey).(*domain.UserClaims)
	return claims, ok && claims != nil
}
