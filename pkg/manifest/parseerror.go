// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"regexp"
	"strconv"
)

// ParseError annotates a manifest reading failure with the source path and,
// when the underlying yaml error carries one, the offending line.
type ParseError struct {
	Path  string
	Line  int
	Cause error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Cause.Error())
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// go-yaml errors render positions as "[line:column]"
var yamlPositionRegex = regexp.MustCompile(`\[(\d+):\d+\]`)

func newParseError(path string, cause error) *ParseError {
	line := 0
	if m := yamlPositionRegex.FindStringSubmatch(cause.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return &ParseError{Path: path, Line: line, Cause: cause}
}
