package models

// MergeRecord is the audit row written alongside every committed merge.
// It corresponds to the 'merge_records' table.
type MergeRecord struct {
	ID                     string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID                string            `gorm:"not null;index" json:"owner_id"`
	TargetPersonID         string            `gorm:"not null;index" json:"target_person_id"`
	SourcePersonID         string            `gorm:"not null;index" json:"source_person_id"`
	SourceName             string            `gorm:"not null" json:"source_name"` // snapshot, the source row is gone
	FieldChoices           map[string]string `gorm:"serializer:json" json:"field_choices"`
	RewrittenConnectionIDs []string          `gorm:"serializer:json" json:"rewritten_connection_ids"`
	DeletedConnectionIDs   []string          `gorm:"serializer:json" json:"deleted_connection_ids"`
	OrphanedImagePaths     []string          `gorm:"serializer:json" json:"orphaned_image_paths"`
	CreatedAt              int64             `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (MergeRecord) TableName() string {
	return "merge_records"
}
