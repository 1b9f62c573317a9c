package domain

// Sensor is one host-facing reading projected from a snapshot. Sensors
// are plain values, not a type hierarchy: each kind differs only in its
// id, display name and the snapshot fields it reads.
type Sensor struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Value      any            `json:"value"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
