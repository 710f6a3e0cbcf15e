package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes and validates the body, writing a 400 with per-field
// details on failure.
func BindJSON(ctx *gin.Context, out any) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large", nil)
			return false
		}

		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err, out))
		return false
	}

	return true
}

func bindErrorDetails(err error, out any) any {
	root := structType(out)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]FieldError, 0, len(validationErrs))

		for _, fe := range validationErrs {
			fields = append(fields, FieldError{
				Field:   jsonFieldName(root, fe.StructField()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: ruleMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if i := strings.LastIndex(field, "."); i >= 0 {
			field = field[i+1:]
		}

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
			}},
		}
	}

	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return gin.H{
			"json": "invalid_json_type",
			"fields": []FieldError{{
				Field:   "date",
				Rule:    "datetime",
				Message: "must be an RFC 3339 timestamp",
			}},
		}
	}

	return gin.H{"reason": err.Error()}
}

func structType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// request structs are flat, so the Go field name maps straight to its json tag
func jsonFieldName(root reflect.Type, goName string) string {
	if root == nil {
		return goName
	}

	sf, ok := root.FieldByName(goName)
	if !ok {
		return goName
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return goName
	}
	return name
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	}

	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}
