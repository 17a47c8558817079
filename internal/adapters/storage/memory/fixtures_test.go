package memory

import (
	"time"

	"vet-clinic-records/internal/domain/documents"
)

func docFixture(id, visitID, filename, checksum string) documents.Document {
	return documents.Document{
		ID:        id,
		VisitID:   visitID,
		Type:      documents.TypeLab,
		Filename:  filename,
		Checksum:  checksum,
		CreatedAt: time.Now(),
	}
}
