// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package apperr defines the runtime's error taxonomy: every error that
// crosses a component boundary (tool, router, chat, workflow) carries one of
// a fixed set of Codes so callers can branch on failure class instead of
// string-matching messages.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an Error by failure kind.
type Code string

const (
	InvalidArgument Code = "INVALID_ARGUMENT"
	InvalidPath     Code = "INVALID_PATH"
	NotFound        Code = "NOT_FOUND"
	Unauthorized    Code = "UNAUTHORIZED"
	RateLimited     Code = "RATE_LIMITED"
	Timeout         Code = "TIMEOUT"
	External        Code = "EXTERNAL"
	Cancelled       Code = "CANCELLED"
	Internal        Code = "INTERNAL"
)

// Error is the taxonomy's concrete type. Message is safe to surface to a
// client; the wrapped Err (if any) is for logs only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that carries an underlying cause for logging.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err is an *Error of the given Code, unwrapping as needed.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the Code of err, or Internal if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}
