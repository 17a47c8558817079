package pets

import "time"

// Species define las especies soportadas.
// @Enum dog, cat, bird, rabbit, other
type Species string

const (
	SpeciesDog    Species = "dog"
	SpeciesCat    Species = "cat"
	SpeciesBird   Species = "bird"
	SpeciesRabbit Species = "rabbit"
	SpeciesOther  Species = "other"
)

func (s Species) Valid() bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesRabbit, SpeciesOther:
		return true
	}
	return false
}

// Sex define el sexo del paciente.
// @Enum male, female, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexUnknown:
		return true
	}
	return false
}

// Status del paciente.
// @Enum active, inactive, deceased
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeceased Status = "deceased"
)

// CreatedVia indica por qué canal se dio de alta.
// @Enum web, mobile, provisional
type CreatedVia string

const (
	CreatedViaWeb         CreatedVia = "web"
	CreatedViaMobile      CreatedVia = "mobile"
	CreatedViaProvisional CreatedVia = "provisional"
)

func (c CreatedVia) Valid() bool {
	switch c {
	case CreatedViaWeb, CreatedViaMobile, CreatedViaProvisional:
		return true
	}
	return false
}

// Pet es un paciente de la clínica.
// El identificador (UID) se asigna al crear y no cambia nunca.
type Pet struct {
	ID string

	UID     string // canónico: base + dígito verificador
	UIDBase string // YYNNNN, único

	Name    string
	Species Species
	Breed   string
	Sex     Sex

	BirthDate *time.Time

	OwnerName   string
	OwnerMobile string // tal cual se tipeó (sin normalizar)

	Notes string

	Status     Status
	CreatedVia CreatedVia
	IsComplete bool

	IsDuplicate    bool
	DuplicateOfUID string // base del paciente canónico; no es FK

	CreatedAt time.Time
	UpdatedAt time.Time
}

// profileComplete dice si el perfil tiene los datos mínimos de recepción.
func profileComplete(p Pet) bool {
	return p.Name != "" && p.Species != "" && p.OwnerName != "" && p.OwnerMobile != ""
}
