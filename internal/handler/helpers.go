// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/olegiv/sitecms/internal/util"
)

// maxJSONBody bounds decoded request bodies.
const maxJSONBody = 1 << 20

var errInvalidID = errors.New("invalid id")

// ParseIDParam parses the {id} URL parameter as a positive integer.
func ParseIDParam(r *http.Request) (int64, error) {
	id, ok := util.ParsePositiveID(chi.URLParam(r, "id"))
	if !ok {
		return 0, errInvalidID
	}
	return id, nil
}

// requireID parses the {id} parameter, writing 400 when it is malformed.
func requireID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid ID")
		return 0, false
	}
	return id, true
}

// decodeJSON reads a JSON body into v, writing 400 when it is malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return false
	}
	return true
}

// validate checks request structs tagged with `validate`. Field errors are
// keyed by the json name.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest returns field errors for v, or nil when it is valid.
func validateRequest(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "Invalid request"}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "This field is required"
		case "email":
			out[fe.Field()] = "Invalid email format"
		case "max":
			out[fe.Field()] = fmt.Sprintf("Must be at most %s characters", fe.Param())
		default:
			out[fe.Field()] = "Invalid value"
		}
	}
	return out
}
