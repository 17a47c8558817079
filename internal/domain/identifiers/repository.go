package identifiers

import "context"

// CounterRepository persiste los contadores por año (year_counters).
type CounterRepository interface {
	// Next bloquea (o crea) la fila del año, incrementa y devuelve el nuevo valor.
	// Debe correr dentro de la transacción del llamador para que un abort revierta el incremento.
	Next(ctx context.Context, yearTwo string) (int, error)

	// Current devuelve el último valor emitido (0 si el año no existe aún).
	Current(ctx context.Context, yearTwo string) (int, error)
}
