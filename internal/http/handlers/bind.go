package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindMappedJSON binds a body whose clients use aliased key spellings
// (kebab-case, camelCase). The alias table is declared per handler; aliased
// keys are rewritten to their canonical names before decoding, and a
// canonical key already present wins over its alias.
func BindMappedJSON(ctx *gin.Context, out interface{}, aliases map[string]string) bool {
	raw, err := io.ReadAll(ctx.Request.Body)

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"reason": err.Error()})
		return false
	}

	remapped, err := remapKeys(raw, aliases)

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"json": "invalid_json_syntax"})
		return false
	}

	if err := json.Unmarshal(remapped, out); err != nil {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err, out))
		return false
	}

	if binding.Validator != nil {
		if err := binding.Validator.ValidateStruct(out); err != nil {
			RespondBadRequest(ctx, "Invalid request body", parseBindError(err, out))
			return false
		}
	}

	return true
}

func remapKeys(raw []byte, aliases map[string]string) ([]byte, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var body map[string]json.RawMessage

	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	for alias, canonical := range aliases {
		v, ok := body[alias]

		if !ok {
			continue
		}

		if _, exists := body[canonical]; !exists {
			body[canonical] = v
		}

		delete(body, alias)
	}

	return json.Marshal(body)
}

func parseBindError(err error, out interface{}) interface{} {
	rootType := baseStructType(out)

	// validator errors (struct bind tags)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   jsonFieldName(rootType, fieldError.StructField()),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{
			"json": "invalid_json_syntax",
		}
	}

	// in the event of a type mismatch

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := jsonFieldName(rootType, unmatchedTypeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// All request structs here are flat, so resolving the json name is a direct
// field lookup.
func jsonFieldName(rootType reflect.Type, structField string) string {
	structField = strings.TrimSpace(structField)

	if rootType == nil || structField == "" {
		return structField
	}

	sf, ok := rootType.FieldByName(structField)

	if !ok {
		return structField
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")

	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
