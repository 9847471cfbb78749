// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/errors"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines
// the catalog and blob store operations.
type Interface interface {
	Open() error
	Close() error

	// Catalog store
	InsertGarment(garment *Garment) (uint, error)
	GetGarment(id uint) (Garment, error)
	GetAllGarments() ([]Garment, error)
	UpdateGarmentFields(id uint, fields map[string]any) error
	DeleteGarment(id uint) error

	// Blob store
	SaveBlob(data []byte, filename string) (uint, error)
	GetBlob(id uint) (ImageBlob, error)
	DeleteBlob(id uint) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// updatableGarmentColumns is the set of columns UpdateGarmentFields may
// touch. id and blob_id are immutable for the lifetime of the record.
var updatableGarmentColumns = map[string]struct{}{
	"sub_category": {},
	"article":      {},
	"gender":       {},
	"base_colour":  {},
	"season":       {},
	"usage":        {},
}

// InsertGarment stores a new catalog record and returns its assigned id.
func (ds *DataStore) InsertGarment(garment *Garment) (uint, error) {
	if err := ds.DB.Create(garment).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "insert_garment").
			Build()
	}
	return garment.ID, nil
}

// GetGarment retrieves a catalog record by its id.
func (ds *DataStore) GetGarment(id uint) (Garment, error) {
	var garment Garment
	if err := ds.DB.First(&garment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Garment{}, errors.Newf("no garment with id %d", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("garment_id", id).
				Build()
		}
		return Garment{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_garment").
			Build()
	}
	return garment, nil
}

// GetAllGarments returns every catalog record. Order is not guaranteed
// unless the caller sorts.
func (ds *DataStore) GetAllGarments() ([]Garment, error) {
	var garments []Garment
	if err := ds.DB.Find(&garments).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_all_garments").
			Build()
	}
	return garments, nil
}

// UpdateGarmentFields applies a partial column update to one record.
// Attempts to set id or blob_id, or any unknown column, are rejected.
// The match-by-id update is the sole concurrency guard; a concurrent
// delete legitimately surfaces as not-found here.
func (ds *DataStore) UpdateGarmentFields(id uint, fields map[string]any) error {
	for column := range fields {
		if _, ok := updatableGarmentColumns[column]; !ok {
			return errors.Newf("column %q is not updatable", column).
				Component("datastore").
				Category(errors.CategoryInvalidUpdate).
				Context("column", column).
				Build()
		}
	}

	result := ds.DB.Model(&Garment{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "update_garment").
			Build()
	}
	if result.RowsAffected == 0 {
		// Distinguish a no-op update from a missing record.
		var count int64
		if err := ds.DB.Model(&Garment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
		if count == 0 {
			return errors.Newf("no garment with id %d", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("garment_id", id).
				Build()
		}
	}
	return nil
}

// DeleteGarment removes a catalog record. Deleting an unknown id is an
// error, not a no-op.
func (ds *DataStore) DeleteGarment(id uint) error {
	result := ds.DB.Delete(&Garment{}, id)
	if result.Error != nil {
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "delete_garment").
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("no garment with id %d", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("garment_id", id).
			Build()
	}
	return nil
}

// SaveBlob stores raw image bytes and returns the assigned blob id.
func (ds *DataStore) SaveBlob(data []byte, filename string) (uint, error) {
	blob := ImageBlob{Filename: filename, Data: data}
	if err := ds.DB.Create(&blob).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryBlobStorage).
			Context("filename", filename).
			Context("size_bytes", len(data)).
			Build()
	}
	return blob.ID, nil
}

// GetBlob retrieves a stored blob by its id.
func (ds *DataStore) GetBlob(id uint) (ImageBlob, error) {
	var blob ImageBlob
	if err := ds.DB.First(&blob, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ImageBlob{}, errors.Newf("no blob with id %d", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("blob_id", id).
				Build()
		}
		return ImageBlob{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryBlobStorage).
			Context("operation", "get_blob").
			Build()
	}
	return blob, nil
}

// DeleteBlob removes a stored blob. A second delete of the same id errors.
func (ds *DataStore) DeleteBlob(id uint) error {
	result := ds.DB.Delete(&ImageBlob{}, id)
	if result.Error != nil {
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryBlobStorage).
			Context("operation", "delete_blob").
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("no blob with id %d", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("blob_id", id).
			Build()
	}
	return nil
}

// Close closes the underlying SQL database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
