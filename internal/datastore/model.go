// model.go this code defines the data model for the application
package datastore

import "time"

// Garment represents one classified garment catalog record. BlobID always
// references a live ImageBlob for the lifetime of the record; the pairing
// is created and destroyed by the pipeline in one logical step.
type Garment struct {
	ID          uint `gorm:"primaryKey"`
	BlobID      uint `gorm:"index:idx_garments_blob_id;not null"`
	SubCategory string
	Article     string
	Gender      string
	BaseColour  string
	Season      string
	Usage       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ImageBlob holds one raw image payload. Blobs are immutable once written;
// lifetime begins on save and ends on delete.
type ImageBlob struct {
	ID        uint   `gorm:"primaryKey"`
	Filename  string `gorm:"type:varchar(255)"`
	Data      []byte `gorm:"not null"`
	CreatedAt time.Time
}
