package transport

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Request is implemented by every decodable request body.
type Request interface {
	normalize()
}

type SendSignInCodeRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required,len=6"`
}

type SendSignUpCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Code     string `json:"code" validate:"required,len=6"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// Decode unmarshals body into dst, normalizes email fields and validates it.
// The returned error is a field-level message fit for the client.
func Decode(body []byte, dst Request) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("malformed JSON body")
	}
	dst.normalize()
	if err := requestValidator().Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return err
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return errors.New(fe.Field() + " is required")
	case "email":
		return errors.New("invalid email address")
	case "len":
		return errors.New(fe.Field() + " must be " + fe.Param() + " characters")
	case "min":
		return errors.New(fe.Field() + " must be at least " + fe.Param() + " characters")
	default:
		return errors.New(fe.Field() + " is invalid")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *SendSignInCodeRequest) normalize() { r.Email = normalizeEmail(r.Email) }
func (r *SignInRequest) normalize()         { r.Email = normalizeEmail(r.Email); r.Code = strings.TrimSpace(r.Code) }
func (r *SendSignUpCodeRequest) normalize() { r.Email = normalizeEmail(r.Email) }
func (r *SignUpRequest) normalize()         { r.Email = normalizeEmail(r.Email); r.Code = strings.TrimSpace(r.Code) }
