package util

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated      Kind = "Unauthenticated"
	KindForbidden            Kind = "Forbidden"
	KindNotFound             Kind = "NotFound"
	KindValidation           Kind = "ValidationError"
	KindUploadFailed         Kind = "UploadFailed"
	KindTranscriptionFailed  Kind = "TranscriptionFailed"
	KindTranscriptionTimeout Kind = "TranscriptionTimeout"
	KindNoteGenerationFailed Kind = "NoteGenerationFailed"
	KindInternal             Kind = "Internal"
)

// Transcription failure reasons reported by the speech collaborator.
const (
	ReasonNetworkUnreachable = "network-unreachable"
	ReasonAuthFailed         = "auth-failed"
	ReasonPermissionDenied   = "permission-denied"
	ReasonInvalidArgument    = "invalid-argument"
	ReasonUnknown            = "unknown"
)

type AppError struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *AppError {
	return NewError(KindUnauthenticated, message, nil)
}

func Forbidden(message string) *AppError {
	return NewError(KindForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return NewError(KindNotFound, message, nil)
}

func Validation(message string) *AppError {
	return NewError(KindValidation, message, nil)
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUploadFailed, KindTranscriptionFailed, KindNoteGenerationFailed:
		return http.StatusBadGateway
	case KindTranscriptionTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
