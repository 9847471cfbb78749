package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jhelttu/closet-go/internal/errors"
)

// maxUploadBytes caps the accepted image payload size.
const maxUploadBytes = 16 << 20 // 16 MiB

// IngestGarment accepts a multipart image upload, classifies it and stores
// blob plus catalog row. The response is the six attribute labels.
func (c *Controller) IngestGarment(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, errors.Newf("no file uploaded").
			Component("api").
			Category(errors.CategoryValidation).
			Build())
	}
	if fileHeader.Size > maxUploadBytes {
		return c.HandleError(ctx, errors.Newf("uploaded file exceeds %d bytes", maxUploadBytes).
			Component("api").
			Category(errors.CategoryValidation).
			Context("size_bytes", fileHeader.Size).
			Build())
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Build())
	}
	defer func() { _ = file.Close() }()

	imageData, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return c.HandleError(ctx, errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Build())
	}

	result, err := c.Pipeline.Ingest(imageData, fileHeader.Filename)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// ListGarments returns the assembled catalog view, images base64 encoded.
func (c *Controller) ListGarments(ctx echo.Context) error {
	entries, err := c.Pipeline.ListAll()
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, entries)
}

// UpdateGarment applies a partial attribute update to one catalog record.
func (c *Controller) UpdateGarment(ctx echo.Context) error {
	fields := map[string]string{}
	if err := ctx.Bind(&fields); err != nil {
		return c.HandleError(ctx, errors.Newf("invalid request body").
			Component("api").
			Category(errors.CategoryValidation).
			Build())
	}

	if err := c.Pipeline.UpdateMetadata(ctx.Param("id"), fields); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"message": "Metadata updated successfully"})
}

// DeleteGarment removes one catalog record and its image blob.
func (c *Controller) DeleteGarment(ctx echo.Context) error {
	if err := c.Pipeline.DeleteRecord(ctx.Param("id")); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Health reports service and datastore reachability.
func (c *Controller) Health(ctx echo.Context) error {
	status := "ok"
	code := http.StatusOK
	if _, err := c.Pipeline.Records(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, map[string]string{
		"status":  status,
		"version": c.Settings.Version,
	})
}
