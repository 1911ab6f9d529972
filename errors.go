package unlock

import (
	"errors"
	"fmt"

	"github.com/xraph/unlock/ads"
)

// Sentinel errors for common failure scenarios.
var (
	// Input errors, returned as Go errors.
	ErrInvalidInput  = errors.New("unlock: invalid input")
	ErrUnknownMethod = errors.New("unlock: unknown unlock method")

	// Business rejections, reported in Result.Err.
	ErrPremiumRequired = errors.New("unlock: premium subscription required")
	ErrFreeUnlockUsed  = errors.New("unlock: free unlock already used today")
	ErrAdsUnavailable  = errors.New("unlock: ads unavailable")
	ErrAdFailed        = errors.New("unlock: rewarded ad not completed")

	// Storage errors, logged and never surfaced as failures.
	ErrStorage = errors.New("unlock: storage operation failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("unlock: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidInput }

var messages = []struct {
	err error
	msg string
}{
	{ErrPremiumRequired, "Esta sección requiere una suscripción Premium."},
	{ErrFreeUnlockUsed, "Ya usaste tu desbloqueo gratuito de hoy. Vuelve mañana."},
	{ErrAdsUnavailable, "Los anuncios no están disponibles en este momento."},
	{ErrInvalidInput, "Solicitud no válida."},
	{ErrUnknownMethod, "Método de desbloqueo no válido."},
	{ErrStorage, "No se pudo guardar tu progreso."},
}

// Message returns the user-facing Spanish message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAdFailed) {
		return ads.Message(err)
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Ocurrió un error inesperado. Inténtalo de nuevo."
}

// IsBusinessRejection returns true for expected, non-exceptional denials:
// premium required, free unlock used, ad cooldown.
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrPremiumRequired) ||
		errors.Is(err, ErrFreeUnlockUsed) ||
		ads.IsCooldown(err)
}

// IsRetryable returns true if the same request may succeed on a later
// user action.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) ||
		(errors.Is(err, ErrAdFailed) && ads.IsRetryable(err))
}
