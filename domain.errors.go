package main

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorCode identifies a failure in api responses.
type ErrorCode string

const (
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeAuthorNotFound    ErrorCode = "AUTHOR_NOT_FOUND"
	CodeBookNotFound      ErrorCode = "BOOK_NOT_FOUND"
	CodeEmailDuplication  ErrorCode = "AUTHOR_EMAIL_DUPLICATION"
	CodeIsbnDuplication   ErrorCode = "BOOK_ISBN_DUPLICATION"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidIdentifier ErrorCode = "INVALID_ID"
)

var (
	ErrAuthorNotFound   = &NotFoundError{Code: CodeAuthorNotFound, Message: "author not found"}
	ErrBookNotFound     = &NotFoundError{Code: CodeBookNotFound, Message: "book not found"}
	ErrEmailDuplication = &ConflictError{Code: CodeEmailDuplication, Message: "author email already exists"}
	ErrIsbnDuplication  = &ConflictError{Code: CodeIsbnDuplication, Message: "book isbn already exists"}
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Code    ErrorCode
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Code    ErrorCode
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ErrorDetails is the error body sent as data of an error response.
type ErrorDetails struct {
	Code   ErrorCode    `json:"code"`
	Fields []FieldError `json:"fields,omitempty"`
}

// ClassifyError maps a service error to its http status code and details.
// Unknown errors are internal errors and their message is never exposed.
func ClassifyError(err error) (int, ErrorDetails) {
	var verr *ValidationError
	var nerr *NotFoundError
	var cerr *ConflictError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorDetails{Code: CodeInvalidInput, Fields: verr.Fields}
	case errors.As(err, &nerr):
		return http.StatusNotFound, ErrorDetails{Code: nerr.Code}
	case errors.As(err, &cerr):
		return http.StatusConflict, ErrorDetails{Code: cerr.Code}
	default:
		return http.StatusInternalServerError, ErrorDetails{Code: CodeInternalError}
	}
}
