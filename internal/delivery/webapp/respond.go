package webapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/usecase"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// requestError is a decode/validation failure of the request itself.
type requestError struct {
	message string
	details map[string]string
}

func (e *requestError) Error() string { return e.message }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("ru_phone", func(fl validator.FieldLevel) bool {
		return usecase.IsRussianPhone(fl.Field().String())
	})
	return v
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &requestError{message: "invalid request body", details: map[string]string{"body": err.Error()}}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fieldPath(fe)] = validationMessage(fe)
			}
			return &requestError{message: "validation failed", details: details}
		}
		return &requestError{message: err.Error()}
	}
	return nil
}

// fieldPath drops the root struct name: "orderRequest.customer.phone" -> "customer.phone"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "ru_phone":
		return "must be a Russian phone number"
	}
	return "is invalid"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("write response failed", zap.Error(err))
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

var conflictErrors = []error{
	entity.ErrOrderTerminal,
	entity.ErrStatusRegression,
	entity.ErrCancelWindowExpired,
	entity.ErrOrderChanged,
	entity.ErrSessionNotWaiting,
	entity.ErrSessionNotActive,
	entity.ErrSessionClosed,
	entity.ErrDuplicate,
}

// writeError maps domain errors to status codes; anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{Code: "validation", Message: reqErr.message, Details: reqErr.details}})
		return
	}
	if ve, ok := entity.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "validation",
			Message: ve.Message,
			Details: map[string]string{ve.Field: ve.Message},
		}})
		return
	}

	switch {
	case errors.Is(err, errUnauthorized), errors.Is(err, errInitDataInvalid), errors.Is(err, errInitDataExpired):
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	case errors.Is(err, entity.ErrInvalidStatus):
		writeErrorCode(w, http.StatusBadRequest, "validation", err.Error())
		return
	case errors.Is(err, entity.ErrForbidden):
		writeErrorCode(w, http.StatusForbidden, "forbidden", err.Error())
		return
	case errors.Is(err, entity.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	for _, c := range conflictErrors {
		if errors.Is(err, c) {
			writeErrorCode(w, http.StatusConflict, "conflict", c.Error())
			return
		}
	}

	logger.L().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeErrorCode(w, http.StatusInternalServerError, "internal", "internal error")
}
