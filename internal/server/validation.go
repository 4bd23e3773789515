package server

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
)

var registerValidatorsOnce sync.Once

// registerValidators adds the front-desk tags to gin's binding validator.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return toSnake(sf.Name)
			}
			return name
		})
		_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
			_, err := paymentdomain.ParseMethod(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("payment_direction", func(fl validator.FieldLevel) bool {
			raw := strings.TrimSpace(fl.Field().String())
			if raw == "" {
				return true
			}
			_, err := paymentdomain.ParseDirection(raw)
			return err == nil
		})
		_ = v.RegisterValidation("document_type", func(fl validator.FieldLevel) bool {
			_, err := invoicedomain.ParseDocumentType(fl.Field().String())
			return err == nil
		})
	})
}

// bindingError turns binder failures into field-level validation errors.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequestError()
	}

	out := &ValidationErrors{}
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		code := "invalid_" + field
		message := "invalid " + field
		if fe.Tag() == "required" {
			code = field + "_required"
			message = field + " is required"
		}
		out.Errors = append(out.Errors, ValidationError{Field: field, Code: code, Message: message})
	}
	return out
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		AbortWithError(c, bindingError(err))
		return false
	}
	return true
}
