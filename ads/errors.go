package ads

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoFill        = errors.New("ads: no ad available")
	ErrNetwork       = errors.New("ads: network error")
	ErrInvalidConfig = errors.New("ads: invalid ad unit configuration")
	ErrLoadTimeout   = errors.New("ads: ad load timed out")
	ErrLoadFailed    = errors.New("ads: ad failed to load")
	ErrShowFailed    = errors.New("ads: ad failed to show")
	ErrShowTimeout   = errors.New("ads: ad never closed")
	ErrNotRewarded   = errors.New("ads: ad closed without completing")
	ErrInProgress    = errors.New("ads: an ad is already showing for this placement")
	ErrRateLimited   = errors.New("ads: too many ad requests")
	ErrDisposed      = errors.New("ads: manager disposed")
)

// CooldownError rejects a show request made inside the cooldown window.
type CooldownError struct {
	Placement string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("ads: placement %q cooling down for %s", e.Placement, e.Remaining.Round(time.Second))
}

// Seconds returns the remaining wait rounded up to whole seconds.
func (e *CooldownError) Seconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// IsCooldown reports whether err is a cooldown rejection.
func IsCooldown(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}

// IsRetryable reports whether the same request may succeed if repeated
// later without any configuration change.
func IsRetryable(err error) bool {
	return IsCooldown(err) ||
		errors.Is(err, ErrNoFill) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrLoadTimeout) ||
		errors.Is(err, ErrShowTimeout) ||
		errors.Is(err, ErrNotRewarded) ||
		errors.Is(err, ErrRateLimited)
}

var messages = []struct {
	err error
	msg string
}{
	{ErrNoFill, "No hay anuncios disponibles en este momento. Inténtalo más tarde."},
	{ErrNetwork, "Error de conexión al cargar el anuncio. Revisa tu conexión."},
	{ErrInvalidConfig, "Los anuncios no están configurados correctamente."},
	{ErrLoadTimeout, "El anuncio tardó demasiado en cargar. Inténtalo de nuevo."},
	{ErrNotRewarded, "El anuncio se cerró antes de completarse."},
	{ErrInProgress, "Ya se está mostrando un anuncio."},
	{ErrRateLimited, "Demasiadas solicitudes de anuncios. Espera un momento."},
	{ErrDisposed, "Los anuncios no están disponibles."},
	{ErrLoadFailed, "No se pudo cargar el anuncio. Inténtalo de nuevo."},
	{ErrShowFailed, "No se pudo mostrar el anuncio. Inténtalo de nuevo."},
	{ErrShowTimeout, "El anuncio dejó de responder. Inténtalo de nuevo."},
}

// Message returns the user-facing Spanish message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ce *CooldownError
	if errors.As(err, &ce) {
		return fmt.Sprintf("Espera %d segundos antes de ver otro anuncio.", ce.Seconds())
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Error al mostrar el anuncio. Inténtalo de nuevo."
}
