// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package validation wraps go-playground/validator v10 behind a process-wide
// instance. Field names in error messages are the koanf keys, so a failure
// reads the same way the setting is spelled in config.yaml:
//
//	type ElasticConfig struct {
//	    URL string `koanf:"url" validate:"required,http_url"`
//	}
//
//	if err := validation.ValidateStruct(cfg); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one failed rule.
type FieldError struct {
	Namespace string
	Tag       string
	Param     string
	Value     interface{}
}

func (e FieldError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Namespace)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Namespace, e.Param)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", e.Namespace, e.Param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", e.Namespace, e.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Namespace, e.Param)
	case "http_url", "url":
		return fmt.Sprintf("%s must be a valid URL, got %q", e.Namespace, e.Value)
	case "sql_identifier":
		return fmt.Sprintf("%s must be a plain SQL identifier, got %q", e.Namespace, e.Value)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Namespace, e.Tag)
	}
}

// Errors is returned by ValidateStruct when at least one rule fails.
type Errors []FieldError

func (ve Errors) Error() string {
	msgs := make([]string, len(ve))
	for i, fe := range ve {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		// Table and column names are interpolated into SQL, so they are
		// restricted to lower-case identifiers.
		_ = validate.RegisterValidation("sql_identifier", func(fl validator.FieldLevel) bool {
			return IsSQLIdentifier(fl.Field().String())
		})
	})
	return validate
}

// IsSQLIdentifier reports whether s is a lower-case unquoted identifier.
func IsSQLIdentifier(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ValidateStruct validates s and returns Errors, or nil when s is valid.
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, len(verrs))
	for i, fe := range verrs {
		ns := fe.Namespace()
		// Drop the root struct name: "Config.pipeline.chunk_size" -> "pipeline.chunk_size".
		if idx := strings.IndexByte(ns, '.'); idx >= 0 {
			ns = ns[idx+1:]
		}
		out[i] = FieldError{Namespace: ns, Tag: fe.Tag(), Param: fe.Param(), Value: fe.Value()}
	}
	return out
}
