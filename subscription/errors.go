package subscription

import (
	"errors"

	"github.com/xraph/unlock/entitlement"
	"github.com/xraph/unlock/internal/timeout"
)

var (
	ErrStillInitializing  = errors.New("subscription: still initializing")
	ErrNotConfigured      = errors.New("subscription: provider not configured")
	ErrPurchaseFailed     = errors.New("subscription: purchase failed")
	ErrRestoreFailed      = errors.New("subscription: restore failed")
	ErrNoPurchasesFound   = errors.New("subscription: no previous purchases found")
	ErrCancelNotSupported = errors.New("subscription: cancellation is managed by the platform store")
	ErrPlanNotFound       = errors.New("subscription: plan not offered")
	ErrInvalidTransition  = errors.New("subscription: invalid state transition")
)

// messages holds the Spanish text shown to users, most specific cause first.
var messages = []struct {
	err error
	msg string
}{
	{entitlement.ErrUserCancelled, "Compra cancelada."},
	{entitlement.ErrInvalidAPIKey, "Las compras no están configuradas correctamente."},
	{entitlement.ErrNoOfferings, "No hay planes disponibles en este momento."},
	{timeout.ErrTimeout, "La tienda tardó demasiado en responder. Revisa tu conexión."},
	{ErrStillInitializing, "La tienda aún se está inicializando. Inténtalo de nuevo en unos segundos."},
	{ErrNotConfigured, "Las compras no están disponibles en este momento."},
	{ErrNoPurchasesFound, "No se encontraron compras anteriores."},
	{ErrCancelNotSupported, "Para cancelar tu suscripción, ve a la configuración de suscripciones de App Store o Google Play."},
	{ErrPlanNotFound, "El plan seleccionado no está disponible."},
	{entitlement.ErrPackageNotFound, "El plan seleccionado no está disponible."},
	{ErrPurchaseFailed, "No se pudo completar la compra. Inténtalo de nuevo."},
	{ErrRestoreFailed, "No se pudieron restaurar las compras. Inténtalo de nuevo."},
}

// Message returns the user-facing Spanish message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Ocurrió un error inesperado. Inténtalo de nuevo."
}

// IsConfigurationError reports whether err will not clear without an
// explicit retry.
func IsConfigurationError(err error) bool {
	return errors.Is(err, entitlement.ErrInvalidAPIKey) ||
		errors.Is(err, ErrNotConfigured)
}
