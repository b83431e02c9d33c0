// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a domain-level error code.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeNotFound
	ErrCodeInvalidInput
	ErrCodeAlreadyExists
	ErrCodeStorageWrite
	ErrCodeConsistency
	ErrCodeInternal
)

// ServiceError is a domain-level error that the transport layer can map
// to a status code.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to an HTTP status.
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeAlreadyExists:
		return http.StatusConflict
	case ErrCodeStorageWrite, ErrCodeConsistency, ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors

func NewNotFoundError(format string, args ...any) *ServiceError {
	return &ServiceError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidInputError(format string, args ...any) *ServiceError {
	return &ServiceError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NewAlreadyExistsError(format string, args ...any) *ServiceError {
	return &ServiceError{Code: ErrCodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

func NewStorageWriteError(msg string, err error) *ServiceError {
	return &ServiceError{Code: ErrCodeStorageWrite, Message: msg, Err: err}
}

func NewInternalError(msg string, err error) *ServiceError {
	return &ServiceError{Code: ErrCodeInternal, Message: msg, Err: err}
}

func errCode(err error) ErrorCode {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ErrCodeNone
}

// IsNotFound checks if an error carries the not-found code.
func IsNotFound(err error) bool {
	return errCode(err) == ErrCodeNotFound
}

// IsInvalidInput checks if an error carries the invalid-input code.
func IsInvalidInput(err error) bool {
	return errCode(err) == ErrCodeInvalidInput
}

// IsAlreadyExists checks if an error carries the already-exists code.
func IsAlreadyExists(err error) bool {
	return errCode(err) == ErrCodeAlreadyExists
}

// IsStorageWrite checks if an error carries the storage-write code.
func IsStorageWrite(err error) bool {
	return errCode(err) == ErrCodeStorageWrite
}
