package event

// Change event types as delivered by the order store's row-level trigger.
const (
	TypeInsert = "INSERT"
	TypeUpdate = "UPDATE"
)

// ChangeEvent is the inbound trigger payload. It is ephemeral and never
// persisted by this service.
type ChangeEvent struct {
	Type   string `json:"type"   validate:"required"`
	Record Record `json:"record"`
}

// Record is a partial reference to the changed row. Only the id is used;
// the full aggregate is always re-fetched.
type Record struct {
	ID string `json:"id" validate:"required"`
}
