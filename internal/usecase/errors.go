package usecase

import "errors"

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeLeadNotFound         = "LEAD_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeInvalidStage         = "INVALID_STAGE"
	CodeTerminalStage        = "TERMINAL_STAGE"
	CodeStageConflict        = "STAGE_CONFLICT"
	CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	CodeUnmappedNotification = "UNMAPPED_NOTIFICATION_TYPE"
	CodeDatabase             = "DATABASE_ERROR"
)

// DomainError is a rule violation the caller can act on.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// DomainErrorCode returns the code of a wrapped DomainError, or "".
func DomainErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// TechnicalError wraps infrastructure failures.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}
