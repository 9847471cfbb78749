package datastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/errors"
)

// createDatabase initializes a temporary SQLite store for testing.
func createDatabase(t *testing.T) Interface {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	ds := New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())

	t.Cleanup(func() {
		if err := ds.Close(); err != nil {
			t.Errorf("Failed to close datastore: %v", err)
		}
	})
	return ds
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	sqliteSettings := &conf.Settings{}
	sqliteSettings.Output.SQLite.Enabled = true
	assert.IsType(t, &SQLiteStore{}, New(sqliteSettings))

	mysqlSettings := &conf.Settings{}
	mysqlSettings.Output.MySQL.Enabled = true
	assert.IsType(t, &MySQLStore{}, New(mysqlSettings))

	assert.Nil(t, New(&conf.Settings{}))
}

func TestGarmentRoundTrip(t *testing.T) {
	ds := createDatabase(t)

	garment := &Garment{
		BlobID:      1,
		SubCategory: "Topwear",
		Article:     "Tshirts",
		Gender:      "Men",
		BaseColour:  "Blue",
		Season:      "Summer",
		Usage:       "Casual",
	}
	id, err := ds.InsertGarment(garment)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := ds.GetGarment(id)
	require.NoError(t, err)
	assert.Equal(t, "Tshirts", got.Article)
	assert.Equal(t, uint(1), got.BlobID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetGarmentNotFound(t *testing.T) {
	ds := createDatabase(t)

	_, err := ds.GetGarment(9999)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetAllGarments(t *testing.T) {
	ds := createDatabase(t)

	garments, err := ds.GetAllGarments()
	require.NoError(t, err)
	assert.Empty(t, garments)

	for i := range 3 {
		_, err := ds.InsertGarment(&Garment{BlobID: uint(i + 1), Season: "Winter"}) //nolint:gosec // G115: small loop index
		require.NoError(t, err)
	}

	garments, err = ds.GetAllGarments()
	require.NoError(t, err)
	assert.Len(t, garments, 3)
}

func TestUpdateGarmentFields(t *testing.T) {
	ds := createDatabase(t)

	id, err := ds.InsertGarment(&Garment{BlobID: 1, Season: "Summer", Gender: "Men"})
	require.NoError(t, err)

	require.NoError(t, ds.UpdateGarmentFields(id, map[string]any{"season": "Winter"}))

	got, err := ds.GetGarment(id)
	require.NoError(t, err)
	assert.Equal(t, "Winter", got.Season)
	assert.Equal(t, "Men", got.Gender, "untouched column must keep its value")
}

func TestUpdateGarmentFieldsRejectsImmutableColumns(t *testing.T) {
	ds := createDatabase(t)

	id, err := ds.InsertGarment(&Garment{BlobID: 1})
	require.NoError(t, err)

	for _, column := range []string{"id", "blob_id", "created_at", "no_such_column"} {
		err := ds.UpdateGarmentFields(id, map[string]any{column: "x"})
		require.Error(t, err, "column %q", column)
		assert.True(t, errors.IsCategory(err, errors.CategoryInvalidUpdate), "column %q", column)
	}
}

func TestUpdateGarmentFieldsNotFound(t *testing.T) {
	ds := createDatabase(t)

	err := ds.UpdateGarmentFields(9999, map[string]any{"season": "Winter"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateGarmentFieldsNoOp(t *testing.T) {
	ds := createDatabase(t)

	id, err := ds.InsertGarment(&Garment{BlobID: 1, Season: "Winter"})
	require.NoError(t, err)

	// Writing the current value affects zero rows but is not an error.
	assert.NoError(t, ds.UpdateGarmentFields(id, map[string]any{"season": "Winter"}))
}

func TestDeleteGarmentIsNotIdempotent(t *testing.T) {
	ds := createDatabase(t)

	id, err := ds.InsertGarment(&Garment{BlobID: 1})
	require.NoError(t, err)

	require.NoError(t, ds.DeleteGarment(id))

	err = ds.DeleteGarment(id)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestBlobRoundTrip(t *testing.T) {
	ds := createDatabase(t)

	data := []byte{0x89, 0x50, 0x4e, 0x47, 0x01, 0x02}
	id, err := ds.SaveBlob(data, "shirt.png")
	require.NoError(t, err)
	assert.NotZero(t, id)

	blob, err := ds.GetBlob(id)
	require.NoError(t, err)
	assert.Equal(t, data, blob.Data)
	assert.Equal(t, "shirt.png", blob.Filename)
}

func TestDeleteBlobIsNotIdempotent(t *testing.T) {
	ds := createDatabase(t)

	id, err := ds.SaveBlob([]byte("payload"), "x.jpg")
	require.NoError(t, err)

	require.NoError(t, ds.DeleteBlob(id))

	err = ds.DeleteBlob(id)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = ds.GetBlob(id)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
