// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package composer

import (
	"errors"
	"fmt"
)

var (
	ErrEnvConflict           = errors.New("conflicting env bindings")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	ErrCyclicReference       = errors.New("cyclic reference")
)

// CompositionError reports a variable the environment could not be composed
// for. Placeholder is set when a template reference caused the failure.
type CompositionError struct {
	Variable    string
	Placeholder string
	Cause       error
}

func (e *CompositionError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("cannot compose %q: %s: ${%s}", e.Variable, e.Cause.Error(), e.Placeholder)
	}
	return fmt.Sprintf("cannot compose %q: %s", e.Variable, e.Cause.Error())
}

func (e *CompositionError) Unwrap() error {
	return e.Cause
}
