// Package txn define el puerto transaccional que usan los servicios de dominio.
// Los adapters (memory, postgres) lo implementan; el dominio no conoce el motor.
package txn

import (
	"context"
	"errors"
)

// ErrLockTimeout indica que la espera por un lock superó el límite configurado.
// Es recuperable: el cliente puede reintentar.
var ErrLockTimeout = errors.New("lock wait timeout")

// Manager ejecuta fn dentro de una transacción.
// Si fn devuelve error (o el ctx se cancela antes del commit) todo se revierte.
// Llamadas anidadas con el ctx de una transacción abierta se unen a ella.
type Manager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// IsRetryable dice si el error es transitorio (timeout de lock).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
