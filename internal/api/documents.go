package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/middleware"
	"property-manager/internal/models"
	"property-manager/internal/storage/block"
)

func (h *Handler) listDocuments(c *gin.Context) {
	subjectID, subjectType := c.Query("subjectId"), c.Query("subjectType")
	docs, err := h.Store.Documents.Find(func(d *models.Document) bool {
		return (subjectID == "" || d.SubjectID == subjectID) &&
			(subjectType == "" || d.SubjectType == subjectType)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

// uploadDocument takes a multipart form with file, subjectType, subjectId
// and an optional name
func (h *Handler) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, formError(err, "file is required"))
		return
	}
	doc := models.Document{
		ID:          common.GenerateID(),
		SubjectType: c.PostForm("subjectType"),
		SubjectID:   c.PostForm("subjectId"),
		Name:        strings.TrimSpace(c.PostForm("name")),
		ContentType: fh.Header.Get("Content-Type"),
		UploadedBy:  middleware.Actor(c),
		CreatedAt:   common.Now(),
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(fh.Filename)
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/octet-stream"
	}

	if err := common.RequireFields("subjectType", doc.SubjectType, "subjectId", doc.SubjectID); err != nil {
		h.fail(c, err)
		return
	}
	exists, err := h.Store.SubjectExists(doc.SubjectType, doc.SubjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !exists {
		h.fail(c, common.ErrInvalidInputf("%s %q does not exist", doc.SubjectType, doc.SubjectID))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	hash := sha256.New()
	doc.StorageKey = block.DocumentKey(doc.SubjectType, doc.SubjectID, doc.ID)
	meta, err := h.Blobs.Put(c.Request.Context(), doc.StorageKey, io.TeeReader(f, hash), doc.ContentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	doc.Size = meta.Size
	doc.Checksum = hex.EncodeToString(hash.Sum(nil))

	created, err := h.Store.Documents.Insert(doc)
	if err != nil {
		h.removeBlob(c, doc.StorageKey)
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "document/"+created.ID, map[string]interface{}{
		"subject": created.SubjectType + "/" + created.SubjectID,
		"name":    created.Name,
		"size":    created.Size,
	})
	ok(c, http.StatusCreated, created)
}

func (h *Handler) downloadDocument(c *gin.Context) {
	doc, err := h.Store.Documents.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rc, err := h.Blobs.Reader(c.Request.Context(), doc.StorageKey)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, doc.Size, doc.ContentType, rc, map[string]string{
		"Content-Disposition": attachment(doc.Name),
	})
}

func (h *Handler) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	doc, err := h.Store.Documents.Get(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.Documents.Delete(id); err != nil {
		h.fail(c, err)
		return
	}
	h.removeBlob(c, doc.StorageKey)
	h.record(c, audit.ActionDelete, "document/"+id, map[string]interface{}{"name": doc.Name})
	ok(c, http.StatusOK, gin.H{"id": id})
}

// removeBlob deletes a blob whose record is gone; failures only leave an orphan
func (h *Handler) removeBlob(c *gin.Context, key string) {
	if err := h.Blobs.Delete(c.Request.Context(), key); err != nil && !block.IsNotFound(err) {
		h.logger.Warn("Failed to delete blob", zap.String("key", key), zap.Error(err))
	}
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

// formError keeps an oversized body distinct from a missing field
func formError(err error, missing string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return common.ErrInvalidInputError(missing)
}
