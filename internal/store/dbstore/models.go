package dbstore

import (
	"time"
)

// DocumentModel is one stored document. Data holds the same bytes the file
// backend would write for the key.
type DocumentModel struct {
	Key       string    `gorm:"primaryKey;size:512"`
	Data      []byte    `gorm:"type:blob;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"` // GORM managed timestamp
	UpdatedAt time.Time `gorm:"autoUpdateTime"` // GORM managed timestamp
}

// TableName returns the table name for DocumentModel
func (DocumentModel) TableName() string {
	return "documents"
}
