package models

// Person represents a person-record in the database using GORM.
// It corresponds to the 'people' table.
type Person struct {
	ID              string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID         string `gorm:"not null;index" json:"owner_id"`
	Name            string `gorm:"not null" json:"name"`
	Company         string `gorm:"not null;default:''" json:"company,omitempty"`
	Hobbies         string `gorm:"not null;default:''" json:"hobbies,omitempty"`
	Birthday        string `gorm:"not null;default:''" json:"birthday,omitempty"`
	FirstMet        string `gorm:"not null;default:''" json:"first_met,omitempty"`
	FirstMetContext string `gorm:"not null;default:''" json:"first_met_context,omitempty"`
	Notes           string `gorm:"not null;default:''" json:"notes,omitempty"`

	// SourceImageIDs lists the rosters (uploaded images) the person appears in
	SourceImageIDs      []string `gorm:"serializer:json" json:"source_image_ids"`
	PrimaryAppearanceID *string  `gorm:"" json:"primary_appearance_id,omitempty"` // Nullable

	// Version is bumped on every conditional write and guards concurrent merges
	Version   int64 `gorm:"not null;default:1" json:"version"`
	CreatedAt int64 `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	FaceAppearances []FaceAppearance `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE" json:"face_appearances"`
}

// TableName explicitly sets the table name for GORM.
func (Person) TableName() string {
	return "people"
}

// PrimaryAppearance returns the appearance flagged primary, if any.
func (p *Person) PrimaryAppearance() *FaceAppearance {
	for i := range p.FaceAppearances {
		if p.FaceAppearances[i].IsPrimary {
			return &p.FaceAppearances[i]
		}
	}
	return nil
}
