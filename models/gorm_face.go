package models

// FaceAppearance is one recorded instance of a person's face within a roster
// (source image). It corresponds to the 'face_appearances' table.
type FaceAppearance struct {
	ID              string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PersonID        string `gorm:"not null;index" json:"person_id"`
	SourceImageID   string `gorm:"not null;index" json:"source_image_id"`
	StoredImagePath string `gorm:"not null" json:"stored_image_path"` // relative to MEDIA_STORAGE_PATH
	X1              int    `gorm:"not null" json:"x1"`
	Y1              int    `gorm:"not null" json:"y1"`
	X2              int    `gorm:"not null" json:"x2"`
	Y2              int    `gorm:"not null" json:"y2"`
	IsPrimary       bool   `gorm:"not null;default:false" json:"is_primary"`
	Position        int    `gorm:"not null;default:0" json:"position"`
	CreatedAt       int64  `gorm:"not null" json:"created_at"`
	UpdatedAt       int64  `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (FaceAppearance) TableName() string {
	return "face_appearances"
}
