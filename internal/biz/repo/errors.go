package repo

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds the engine recognizes. Transport and data implementations wrap
// their platform errors into these so the usecase layer can branch without
// knowing the wire protocol.
var (
	ErrAuthRequired        = errors.New("authorization required")
	ErrEntityNotFound      = errors.New("entity not found")
	ErrForbidden           = errors.New("forbidden")
	ErrStoreUnavailable    = errors.New("campaign store unavailable")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrEmptyCompletion     = errors.New("empty completion")
)

// FloodWaitError is the transport's rate-limit signal with its wait hint.
// Callers must not retry earlier than Wait.
type FloodWaitError struct {
	Wait time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("rate limited, wait %s", e.Wait)
}

// AsFloodWait extracts the wait hint when err is a rate-limit signal.
func AsFloodWait(err error) (time.Duration, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw.Wait, true
	}
	return 0, false
}
