// Package validate 入参校验，错误转成带字段明细的 apperr.Validation
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"projecthub/internal/apperr"
)

const failedMsg = "validation failed"

var v = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 字段名按 json tag 输出，和请求体保持一致
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Struct 校验 in；extra 为调用方额外发现的字段错误，一并返回
func Struct(in any, extra ...apperr.FieldError) error {
	fields := append([]apperr.FieldError(nil), extra...)
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Internal("validate input", err)
		}
		fields = append(FromValidator(verrs), fields...)
	}
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation(failedMsg, fields...)
}

// FromValidator gin 绑定阶段的校验错误也走这里
func FromValidator(verrs validator.ValidationErrors) []apperr.FieldError {
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

// fieldPath 去掉顶层结构体名：ProjectInput.tech[0] -> tech[0]
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "please provide a valid email"
	case "url", "http_url":
		return name + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max", "len":
		return lengthMessage(fe)
	}
	return name + " is invalid"
}

func lengthMessage(fe validator.FieldError) string {
	name, p := fe.Field(), fe.Param()
	unit := "characters"
	switch fe.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = "entries"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		unit = ""
	}
	var rule string
	switch fe.Tag() {
	case "min":
		rule = "at least " + p
	case "max":
		rule = "at most " + p
	default:
		rule = "exactly " + p
	}
	if unit == "" {
		return fmt.Sprintf("%s must be %s", name, rule)
	}
	return fmt.Sprintf("%s must have %s %s", name, rule, unit)
}
