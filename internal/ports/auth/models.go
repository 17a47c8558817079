package auth

// Claims representa la información extraída del token.
type Claims struct {
	UserID   string
	Email    string
	TenantID string
	// Role del staff (reception, vet, admin); vacío si el IAM no lo informa.
	Role string
}
