package specimen

import "time"

// Specimen is a physical lab sample record. ID is the opaque internal
// identifier, SpecimenNumber the human-facing sequence number, and TubeID the
// operator-assigned tube label. TubeID and SpecimenNumber may be empty; an
// empty TubeID excludes the specimen from substring matching but not from
// exact identifier matching.
type Specimen struct {
	ID             string
	ProjectID      string
	SpecimenNumber string
	TubeID         string
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
