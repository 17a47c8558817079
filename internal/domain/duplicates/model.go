package duplicates

import "time"

// Action registrada en el log de duplicados.
// @Enum mark_duplicate, unmark_duplicate, cross_reference
type Action string

const (
	ActionMark           Action = "mark_duplicate"
	ActionUnmark         Action = "unmark_duplicate"
	ActionCrossReference Action = "cross_reference"
)

// AuditEntry es append-only: nunca se edita ni se borra.
type AuditEntry struct {
	ID        string
	Action    Action
	SourceUID string // base
	TargetUID string // base; vacío = null
	ActorID   string
	Reason    string
	CreatedAt time.Time
}
