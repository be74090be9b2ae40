package services

import "errors"

// Sentinel errors returned by the sync and device services. Handlers map
// these to HTTP status codes.
var (
	ErrDeviceNotFound      = errors.New("device not found or inactive")
	ErrBusinessNotFound    = errors.New("business not found or inactive")
	ErrDeviceLimitReached  = errors.New("device limit reached for this business")
	ErrPairingTokenInvalid = errors.New("pairing token is invalid")
	ErrPairingTokenExpired = errors.New("pairing token is expired or already used")
)

// BusinessLogicError rejects a single push item without failing the batch.
// Unknown entity types and malformed changes surface as this type.
type BusinessLogicError struct {
	Message string
}

func (e *BusinessLogicError) Error() string {
	return e.Message
}

// IsBusinessLogicError reports whether err is a per-item rejection
func IsBusinessLogicError(err error) bool {
	var ble *BusinessLogicError
	return errors.As(err, &ble)
}
