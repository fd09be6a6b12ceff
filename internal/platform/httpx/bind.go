package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"pet-adoption/internal/platform/apperr"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

type validatorSvc struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

func getValidator() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// mensajes con el nombre del campo json
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		vSvc = &validatorSvc{v: v, trans: trans}
	})
	return vSvc
}

// Decode parsea el body JSON en T y lo valida con los tags `validate`.
func Decode[T any](r *http.Request) (T, error) {
	var zero T

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var dst T
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, apperr.InvalidArgument("request body required")
		}
		return zero, apperr.InvalidArgument("invalid json")
	}

	if err := Validate(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// Validate aplica los tags `validate` y devuelve errores por campo.
func Validate(v any) error {
	svc := getValidator()
	err := svc.v.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.InvalidArgument("validation error")
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   fe.Field(),
			Message: fe.Translate(svc.trans),
		})
	}
	return apperr.InvalidArgument("validation failed", fields...)
}

// QueryInt lee un entero opcional de la query; def si falta.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArgument("invalid query parameter", apperr.FieldError{
			Field:   key,
			Message: key + " must be an integer",
		})
	}
	return n, nil
}

// QueryIntPtr es como QueryInt pero nil si el parámetro no viene.
func QueryIntPtr(r *http.Request, key string) (*int, error) {
	if strings.TrimSpace(r.URL.Query().Get(key)) == "" {
		return nil, nil
	}
	n, err := QueryInt(r, key, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func asAppErr(err error, target **apperr.Error) bool {
	return errors.As(err, target)
}
