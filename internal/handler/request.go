package handler

// REQUEST HELPERS:
// Every handler follows the same shape:
//
//	id, err := pathID(r, "videoId")          // 400 before touching storage
//	var body updateVideoRequest
//	if err := decodeJSON(w, r, &body); ...   // 400 on malformed JSON
//	if err := validate.Struct(body); ...     // 400 with one entry per field
//	result, err := h.videos.Update(...)      // service enforces the rules
//	response.JSON(w, http.StatusOK, result, "Video updated")
//
// Handlers never build error bodies themselves; they hand every error to
// response.Error, which picks the status.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

const (
	maxJSONBody = 1 << 20

	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON (or form) name, not the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	// "xid" accepts the 20-character ids every entity uses.
	_ = v.RegisterValidation("xid", func(fl validator.FieldLevel) bool {
		_, err := xid.FromString(fl.Field().String())
		return err == nil
	})
	return v
}

// validateStruct runs the struct tags and converts failures into one
// apperror with an entry per field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("handler: validating request: %w", err)
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return apperror.Invalid(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "required_without":
		return fmt.Sprintf("%s or %s is required", name, lowerFirst(fe.Param()))
	case "email":
		return name + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s can hold at most %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "alphanum":
		return name + " may only contain letters and digits"
	case "xid":
		return name + " must be a valid id"
	}
	return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// decodeJSON reads a JSON body of at most 1 MiB into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "request body is too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be absent.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := decodeJSON(w, r, dst)
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message == "request body is required" {
		return nil
	}
	return err
}

// pathID returns the named URL parameter after checking it is an xid.
func pathID(r *http.Request, name string) (string, error) {
	id := r.PathValue(name)
	if id == "" {
		return "", apperror.ValidationFailed(name, name+" is required")
	}
	if _, err := xid.FromString(id); err != nil {
		return "", apperror.ValidationFailed(name, "Invalid "+name)
	}
	return id, nil
}

// pagination reads ?page and ?limit into an offset window.
//
//	page=3&limit=20 → LIMIT 20 OFFSET 40
func pagination(r *http.Request) (repository.ListOptions, error) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		return repository.ListOptions{}, err
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		return repository.ListOptions{}, err
	}
	if page < 1 {
		return repository.ListOptions{}, apperror.ValidationFailed("page", "page must be 1 or greater")
	}
	if limit < 1 || limit > maxLimit {
		return repository.ListOptions{}, apperror.ValidationFailed("limit",
			fmt.Sprintf("limit must be between 1 and %d", maxLimit))
	}
	return repository.ListOptions{Limit: limit, Offset: (page - 1) * limit}, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(key, key+" must be a whole number")
	}
	return n, nil
}

// currentUser returns the user RequireAuth put in the context. Routes that
// call it are always mounted behind RequireAuth.
func currentUser(r *http.Request) *model.User {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		panic("handler: route is missing auth.RequireAuth")
	}
	return u
}
