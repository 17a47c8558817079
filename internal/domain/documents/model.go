package documents

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Type clasifica el documento adjunto a una visita.
// @Enum prescription, lab, xray, usg, photo, certificate, report
type Type string

const (
	TypePrescription Type = "prescription"
	TypeLab          Type = "lab"
	TypeXRay         Type = "xray"
	TypeUSG          Type = "usg"
	TypePhoto        Type = "photo"
	TypeCertificate  Type = "certificate"
	TypeReport       Type = "report"
)

func (t Type) Valid() bool {
	switch t {
	case TypePrescription, TypeLab, TypeXRay, TypeUSG, TypePhoto, TypeCertificate, TypeReport:
		return true
	}
	return false
}

const (
	// DefaultMaxBytes: límite de subida por archivo (10 MiB).
	DefaultMaxBytes int64 = 10 << 20
	MaxNoteLength         = 500
)

// allowedExt: extensiones aceptadas (en minúscula, sin punto).
var allowedExt = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"pdf":  true,
	"webp": true,
}

// Document es un archivo registrado en una visita.
// Dentro de la visita el filename es único y el checksum también (entre no borrados).
type Document struct {
	ID         string
	VisitID    string
	PetID      string
	PatientUID string // base del paciente al momento de registrar

	Type         Type
	Filename     string // DDMMYY-type-uid-NN.ext
	OriginalName string
	StoragePath  string
	ContentType  string
	SizeBytes    int64
	Note         string
	Checksum     string // sha256 hex

	CapturedAt time.Time
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// BuildFilename arma el nombre determinístico del archivo.
func BuildFilename(capturedAt time.Time, t Type, uidBase string, seq int, ext string) string {
	return fmt.Sprintf("%s-%s-%s-%02d.%s", capturedAt.Format("020106"), t, uidBase, seq, ext)
}

// StorageKey: patients/{YYYY}/{uid}/{visitID}/{filename}
// El NN del filename es por visita, así que la visita tiene que estar en la clave.
func StorageKey(capturedAt time.Time, uidBase, visitID, filename string) string {
	return path.Join("patients", capturedAt.Format("2006"), uidBase, visitID, filename)
}

// Extension devuelve la extensión en minúscula sin el punto.
func Extension(name string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	return strings.TrimPrefix(ext, ".")
}
