package models

// Connection is a directed relationship between two people of the same owner.
// It corresponds to the 'connections' table.
type Connection struct {
	ID           string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID      string   `gorm:"not null;index" json:"owner_id"`
	FromPersonID string   `gorm:"not null;index" json:"from_person_id"`
	ToPersonID   string   `gorm:"not null;index" json:"to_person_id"`
	Types        []string `gorm:"serializer:json" json:"types"`
	Reasons      []string `gorm:"serializer:json" json:"reasons"`
	Strength     *int     `gorm:"" json:"strength,omitempty"` // Nullable, 1-5
	Notes        string   `gorm:"not null;default:''" json:"notes,omitempty"`
	Version      int64    `gorm:"not null;default:1" json:"version"`
	CreatedAt    int64    `gorm:"not null" json:"created_at"`
	UpdatedAt    int64    `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Connection) TableName() string {
	return "connections"
}

// Counterpart returns the endpoint opposite personID, and false when the
// connection is not incident to personID.
func (c *Connection) Counterpart(personID string) (string, bool) {
	switch personID {
	case c.FromPersonID:
		return c.ToPersonID, true
	case c.ToPersonID:
		return c.FromPersonID, true
	}
	return "", false
}

// Touches reports whether the connection has personID as either endpoint.
func (c *Connection) Touches(personID string) bool {
	return c.FromPersonID == personID || c.ToPersonID == personID
}
