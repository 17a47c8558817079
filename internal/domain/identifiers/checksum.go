package identifiers

// ComputeCheckDigit calcula el dígito verificador de base.
// Recorre de derecha a izquierda y duplica cada segundo dígito
// empezando por el penúltimo de la base; si el doble pasa de 9 se le resta 9.
func ComputeCheckDigit(base string) (int, error) {
	if base == "" {
		return 0, ErrWrongLength
	}

	sum := 0
	double := false
	for i := len(base) - 1; i >= 0; i-- {
		c := base[i]
		if c < '0' || c > '9' {
			return 0, ErrNotNumeric
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	return (10 - sum%10) % 10, nil
}

// ValidChecksum valida un identificador completo (base + dígito).
// Falla cerrado: cualquier largo o carácter inesperado devuelve false.
func ValidChecksum(full string) bool {
	if len(full) != FullLength {
		return false
	}
	last := full[len(full)-1]
	if last < '0' || last > '9' {
		return false
	}

	want, err := ComputeCheckDigit(full[:BaseLength])
	if err != nil {
		return false
	}
	return want == int(last-'0')
}

// ExtractBase devuelve la base. No valida.
func ExtractBase(full string) string {
	if len(full) == BaseLength || full == "" {
		return full
	}
	return full[:len(full)-1]
}

// WithCheckDigit arma el identificador canónico a partir de una base.
func WithCheckDigit(base string) (string, error) {
	if len(base) != BaseLength {
		return "", ErrWrongLength
	}
	d, err := ComputeCheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + string(rune('0'+d)), nil
}
