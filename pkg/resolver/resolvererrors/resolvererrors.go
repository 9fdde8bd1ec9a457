// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolvererrors

import "errors"

const (
	PackageNotFound         = "PACKAGE_NOT_FOUND"
	ConstraintUnsatisfiable = "CONSTRAINT_UNSATISFIABLE"
	UnknownError            = "UNKNOWN_ERROR"
)

type ResolutionError struct {
	Code    string
	Package string
	Cause   error
}

func (r *ResolutionError) Error() string {
	msg := r.Code
	if r.Package != "" {
		msg += " (" + r.Package + ")"
	}
	if r.Cause != nil {
		msg += ": " + r.Cause.Error()
	}
	return msg
}

func (r *ResolutionError) MarshalYAML() (interface{}, error) {
	var causeStr string
	if r.Cause != nil {
		causeStr = r.Cause.Error()
	}
	return map[string]interface{}{
		"code":    r.Code,
		"package": r.Package,
		"cause":   causeStr,
	}, nil
}

func (r *ResolutionError) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var aux struct {
		Code    string `yaml:"code"`
		Package string `yaml:"package"`
		Cause   string `yaml:"cause"`
	}
	if err := unmarshal(&aux); err != nil {
		return err
	}
	r.Code = aux.Code
	r.Package = aux.Package
	if aux.Cause != "" {
		r.Cause = errors.New(aux.Cause)
	}
	return nil
}

func (r *ResolutionError) Unwrap() error {
	return r.Cause
}

var _ error = (*ResolutionError)(nil)

func NewPackageNotFoundError(pkg string, cause error) *ResolutionError {
	return &ResolutionError{
		Code:    PackageNotFound,
		Package: pkg,
		Cause:   cause,
	}
}

func NewConstraintUnsatisfiableError(pkg string, cause error) *ResolutionError {
	return &ResolutionError{
		Code:    ConstraintUnsatisfiable,
		Package: pkg,
		Cause:   cause,
	}
}

func NewUnknownError(cause error) *ResolutionError {
	return &ResolutionError{
		Code:  UnknownError,
		Cause: cause,
	}
}

func Standardize(err error) *ResolutionError {
	if err == nil {
		return nil
	}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr
	}

	return NewUnknownError(err)
}
