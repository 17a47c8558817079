package identifiers

import (
	"errors"
	"fmt"
)

const (
	// BaseLength es el largo del identificador base: YY + NNNN.
	BaseLength = 6
	// FullLength es el largo del identificador canónico (base + dígito verificador).
	FullLength = BaseLength + 1
	// MaxSequence es el mayor correlativo representable en 4 dígitos.
	MaxSequence = 9999
)

var (
	// ErrInvalidIdentifier agrupa todos los errores de validación (no recuperables).
	ErrInvalidIdentifier = errors.New("invalid identifier")

	ErrWrongLength = fmt.Errorf("%w: wrong length", ErrInvalidIdentifier)
	ErrBadChecksum = fmt.Errorf("%w: bad checksum", ErrInvalidIdentifier)
	ErrNotNumeric  = fmt.Errorf("%w: not numeric", ErrInvalidIdentifier)

	// ErrAllocationTimeout: no se obtuvo el lock del contador a tiempo. Recuperable.
	ErrAllocationTimeout = errors.New("identifier allocation timeout")

	// ErrSequenceExhausted: el año ya usó los 9999 correlativos.
	ErrSequenceExhausted = errors.New("identifier sequence exhausted")
)

// Identifier es un identificador ya validado.
type Identifier struct {
	Base string
	// Full viene vacío cuando la entrada era solo base (legacy).
	Full string
}
