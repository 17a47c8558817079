package visits

import "time"

// Status de la visita.
// @Enum open, closed
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Source indica desde qué cliente se abrió la visita.
// @Enum web, mobile
type Source string

const (
	SourceWeb    Source = "web"
	SourceMobile Source = "mobile"
)

func (s Source) Valid() bool {
	return s == SourceWeb || s == SourceMobile
}

// Visit es un encuentro del paciente en un día calendario.
// (PetID, VisitDate, Sequence) es único; Sequence arranca en 1.
type Visit struct {
	ID        string
	PetID     string
	VisitDate time.Time // fecha civil, medianoche UTC
	Sequence  int

	Status   Status
	Source   Source
	OpenedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// Day normaliza t a fecha civil en loc, representada como medianoche UTC.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// pick elige qué visita devolver cuando ya existen visitas en el día:
// la abierta de mayor secuencia; si todas están cerradas, la de mayor secuencia.
func pick(items []Visit) Visit {
	best := -1
	for i, v := range items {
		if v.Status != StatusOpen {
			continue
		}
		if best < 0 || v.Sequence > items[best].Sequence {
			best = i
		}
	}
	if best >= 0 {
		return items[best]
	}
	return items[maxIndex(items)]
}

func maxIndex(items []Visit) int {
	idx := 0
	for i, v := range items {
		if v.Sequence > items[idx].Sequence {
			idx = i
		}
	}
	return idx
}

func maxSequence(items []Visit) int {
	if len(items) == 0 {
		return 0
	}
	return items[maxIndex(items)].Sequence
}
