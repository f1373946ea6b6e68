package core

import (
	"errors"
	"fmt"

	"github.com/edvin/oportunia/internal/billing"
	"github.com/edvin/oportunia/internal/model"
)

var (
	ErrConfigMissing   = errors.New("provider config missing")
	ErrNotConnected    = errors.New("provider not connected")
	ErrCorruptedTokens = errors.New("stored credentials cannot be decrypted")
	ErrRefreshFailed   = errors.New("token refresh failed")
	ErrRefreshTimedOut = errors.New("token refresh timed out")
	ErrInvalidState    = errors.New("invalid oauth state")
	ErrUnknownSlot     = errors.New("unknown provider slot")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("invalid credentials")
)

// IsUserActionable reports whether err is an expected state an
// administrator resolves by configuring or reconnecting a provider, as
// opposed to a data integrity or environment defect.
func IsUserActionable(err error) bool {
	return errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrRefreshFailed) ||
		errors.Is(err, ErrRefreshTimedOut) ||
		errors.Is(err, ErrConfigMissing)
}

// UsageLimitError carries the denied decision to the caller.
type UsageLimitError struct {
	Decision model.UsageDecision
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("usage limit reached for %s on %s tier (%d)", e.Decision.Feature, e.Decision.Tier, e.Decision.Limit)
}

func (e *UsageLimitError) Unwrap() error {
	return billing.ErrUsageLimitReached
}

func validSlot(slot model.Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	return nil
}
