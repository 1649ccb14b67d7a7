package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCount          = errors.New("invalid count")
	ErrInvalidDetectorConfig = errors.New("invalid detector config")

	ErrInvalidBackend  = errors.New("invalid backend")
	ErrDataStoreAccess = errors.New("data store read/write error")

	ErrDetectorUnavailable = errors.New("detector unavailable")
	ErrDetectionInFlight   = errors.New("detection already in flight")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
