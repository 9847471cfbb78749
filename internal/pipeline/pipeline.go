// Package pipeline orchestrates the classifier, blob store and catalog
// store so that an image blob and its metadata row are always created,
// updated and deleted together.
package pipeline

import (
	"encoding/base64"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jhelttu/closet-go/internal/datastore"
	"github.com/jhelttu/closet-go/internal/errors"
	"github.com/jhelttu/closet-go/internal/garmentnet"
	"github.com/jhelttu/closet-go/internal/logging"
	"github.com/jhelttu/closet-go/internal/observability"
)

// Classifier is the capability the pipeline needs from the model layer.
type Classifier interface {
	Classify(imageData []byte) (garmentnet.Classification, error)
}

// Pipeline holds no per-request state; every operation is independent and
// the storage layer's per-document atomicity is the unit of consistency.
type Pipeline struct {
	classifier Classifier
	ds         datastore.Interface
	metrics    *observability.Metrics
	log        *slog.Logger
}

// Entry is the assembled external view of one catalog record, image
// payload included as base64.
type Entry struct {
	ID          string `json:"id"`
	BlobID      string `json:"blobId"`
	SubCategory string `json:"subCategory"`
	Article     string `json:"article"`
	Gender      string `json:"gender"`
	BaseColour  string `json:"baseColour"`
	Season      string `json:"season"`
	Usage       string `json:"usage"`
	Image       string `json:"image"`
}

// New creates a Pipeline. metrics may be nil.
func New(classifier Classifier, ds datastore.Interface, metrics *observability.Metrics) *Pipeline {
	log := logging.ForService("pipeline")
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		classifier: classifier,
		ds:         ds,
		metrics:    metrics,
		log:        log,
	}
}

// updatableFields maps external attribute names to their catalog columns.
// id and blobId are deliberately absent: they are immutable.
var updatableFields = map[string]string{
	"subCategory": "sub_category",
	"article":     "article",
	"articleType": "article",
	"gender":      "gender",
	"baseColour":  "base_colour",
	"season":      "season",
	"usage":       "usage",
}

// Ingest classifies the image and persists blob plus catalog row as one
// logical step. If the row insert fails after the blob write, the orphaned
// blob is deleted again and the insert error surfaces; a catalog-less blob
// is never a normal outcome. The record id is logged, not returned.
func (p *Pipeline) Ingest(imageData []byte, filename string) (garmentnet.Classification, error) {
	classifyStart := time.Now()
	result, err := p.classifier.Classify(imageData)
	if err != nil {
		p.metrics.RecordClassification("error", 0)
		p.metrics.RecordCatalogOp("ingest", "classify_error")
		return garmentnet.Classification{}, err
	}
	p.metrics.RecordClassification("success", time.Since(classifyStart).Seconds())

	blobID, err := p.ds.SaveBlob(imageData, filepath.Base(filename))
	if err != nil {
		p.metrics.RecordCatalogOp("ingest", "blob_error")
		return garmentnet.Classification{}, err
	}

	garment := datastore.Garment{
		BlobID:      blobID,
		SubCategory: result.SubCategory,
		Article:     result.ArticleType,
		Gender:      result.Gender,
		BaseColour:  result.BaseColour,
		Season:      result.Season,
		Usage:       result.Usage,
	}
	id, err := p.ds.InsertGarment(&garment)
	if err != nil {
		// Compensating delete so no catalog-less blob persists.
		if delErr := p.ds.DeleteBlob(blobID); delErr != nil {
			p.metrics.RecordCatalogOp("ingest", "integrity_error")
			p.log.Error("ingest rollback failed, orphan blob persists",
				"blob_id", blobID, "insert_error", err, "rollback_error", delErr)
			return garmentnet.Classification{}, errors.New(errors.Join(err, delErr)).
				Component("pipeline").
				Category(errors.CategoryIntegrity).
				Context("blob_id", blobID).
				Build()
		}
		p.metrics.RecordCatalogOp("ingest", "insert_error")
		return garmentnet.Classification{}, err
	}

	p.metrics.RecordCatalogOp("ingest", "success")
	p.log.Info("garment ingested",
		"garment_id", id,
		"blob_id", blobID,
		"filename", filepath.Base(filename),
		"sub_category", result.SubCategory,
		"article_type", result.ArticleType)
	return result, nil
}

// ListAll assembles the full catalog view. A single missing blob fails the
// whole listing: a broken pairing is surfaced, never skipped.
func (p *Pipeline) ListAll() ([]Entry, error) {
	garments, err := p.ds.GetAllGarments()
	if err != nil {
		p.metrics.RecordCatalogOp("list", "error")
		return nil, err
	}

	entries := make([]Entry, 0, len(garments))
	for i := range garments {
		g := &garments[i]
		blob, err := p.ds.GetBlob(g.BlobID)
		if err != nil {
			p.metrics.RecordCatalogOp("list", "integrity_error")
			return nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryIntegrity).
				Context("garment_id", g.ID).
				Context("blob_id", g.BlobID).
				Build()
		}
		entries = append(entries, Entry{
			ID:          formatID(g.ID),
			BlobID:      formatID(g.BlobID),
			SubCategory: g.SubCategory,
			Article:     g.Article,
			Gender:      g.Gender,
			BaseColour:  g.BaseColour,
			Season:      g.Season,
			Usage:       g.Usage,
			Image:       base64.StdEncoding.EncodeToString(blob.Data),
		})
	}
	p.metrics.RecordCatalogOp("list", "success")
	return entries, nil
}

// Records returns the raw catalog rows, used for the recommendation
// projection where image payloads are not needed.
func (p *Pipeline) Records() ([]datastore.Garment, error) {
	return p.ds.GetAllGarments()
}

// UpdateMetadata applies a partial attribute update to one record. The
// record id is the sole addressing scheme for mutations.
func (p *Pipeline) UpdateMetadata(id string, fields map[string]string) error {
	recordID, err := ParseID(id)
	if err != nil {
		p.metrics.RecordCatalogOp("update", "invalid_id")
		return err
	}
	if len(fields) == 0 {
		p.metrics.RecordCatalogOp("update", "no_fields")
		return errors.Newf("no metadata fields provided for update").
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}

	columns := make(map[string]any, len(fields))
	for name, value := range fields {
		column, ok := updatableFields[name]
		if !ok {
			p.metrics.RecordCatalogOp("update", "invalid_field")
			return errors.Newf("field %q is not updatable", name).
				Component("pipeline").
				Category(errors.CategoryInvalidUpdate).
				Context("field", name).
				Build()
		}
		columns[column] = value
	}

	if err := p.ds.UpdateGarmentFields(recordID, columns); err != nil {
		if errors.IsNotFound(err) {
			p.metrics.RecordCatalogOp("update", "not_found")
		} else {
			p.metrics.RecordCatalogOp("update", "error")
		}
		return err
	}
	p.metrics.RecordCatalogOp("update", "success")
	return nil
}

// DeleteRecord removes blob and row together, blob first. If the blob
// delete fails the row is kept, so no row without a blob is ever
// introduced, and the failure surfaces as a partial-delete error.
func (p *Pipeline) DeleteRecord(id string) error {
	recordID, err := ParseID(id)
	if err != nil {
		p.metrics.RecordCatalogOp("delete", "invalid_id")
		return err
	}

	garment, err := p.ds.GetGarment(recordID)
	if err != nil {
		if errors.IsNotFound(err) {
			p.metrics.RecordCatalogOp("delete", "not_found")
		} else {
			p.metrics.RecordCatalogOp("delete", "error")
		}
		return err
	}

	if err := p.ds.DeleteBlob(garment.BlobID); err != nil {
		p.metrics.RecordCatalogOp("delete", "partial_delete")
		p.log.Error("blob delete failed, catalog row kept",
			"garment_id", garment.ID, "blob_id", garment.BlobID, "error", err)
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryPartialDelete).
			Context("garment_id", garment.ID).
			Context("blob_id", garment.BlobID).
			Build()
	}

	if err := p.ds.DeleteGarment(recordID); err != nil {
		// Blob already gone: the pairing is broken either way, report it.
		p.metrics.RecordCatalogOp("delete", "partial_delete")
		p.log.Error("row delete failed after blob delete",
			"garment_id", garment.ID, "blob_id", garment.BlobID, "error", err)
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryPartialDelete).
			Context("garment_id", garment.ID).
			Context("blob_id", garment.BlobID).
			Build()
	}

	p.metrics.RecordCatalogOp("delete", "success")
	p.log.Info("garment deleted", "garment_id", garment.ID, "blob_id", garment.BlobID)
	return nil
}

// ParseID validates and parses a record identifier. Identifiers are
// positive decimal integers assigned by the catalog store.
func ParseID(id string) (uint, error) {
	parsed, err := strconv.ParseUint(id, 10, 32)
	if err != nil || parsed == 0 {
		return 0, errors.Newf("invalid record id %q", id).
			Component("pipeline").
			Category(errors.CategoryInvalidID).
			Context("id", id).
			Build()
	}
	return uint(parsed), nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
