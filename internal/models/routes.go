package models

// Routes holds the relay routing identifiers. A nil pointer means the ID has
// not been configured yet.
type Routes struct {
	SourceID      *int64 `json:"source_id"`
	DestinationID *int64 `json:"destination_id"`
}

// IsComplete reports whether both endpoints are configured.
func (r Routes) IsComplete() bool {
	return r.SourceID != nil && r.DestinationID != nil
}
