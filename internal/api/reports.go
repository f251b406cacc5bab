package api

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"property-manager/internal/audit"
	"property-manager/internal/common"
	"property-manager/internal/datasets"
	"property-manager/internal/reports"
)

func (h *Handler) listReports(c *gin.Context) {
	ok(c, http.StatusOK, reports.Names)
}

// exportReport downloads a report as csv (default) or parquet
func (h *Handler) exportReport(c *gin.Context) {
	format, err := reports.ParseFormat(c.Query("format"))
	if err != nil {
		h.fail(c, err)
		return
	}
	name := c.Param("name")
	table, err := h.Reports.Build(c.Request.Context(), name, c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}

	// rendered up front so a failure still gets the JSON envelope
	var buf bytes.Buffer
	if err := reports.Write(&buf, table, format); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(format.Filename(name)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *Handler) listDatasets(c *gin.Context) {
	list, err := h.Datasets.List()
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) getDataset(c *gin.Context) {
	ds, err := h.Datasets.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, ds)
}

func (h *Handler) previewDataset(c *gin.Context) {
	limit, err := queryInt(c, "limit", datasets.DefaultPreviewRows)
	if err != nil {
		h.fail(c, err)
		return
	}
	preview, err := h.Datasets.Preview(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, preview)
}

func (h *Handler) downloadDataset(c *gin.Context) {
	ds, rc, err := h.Datasets.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	filename := strings.ReplaceAll(ds.Name, " ", "_") + ".csv"
	c.DataFromReader(http.StatusOK, ds.Size, "text/csv; charset=utf-8", rc, map[string]string{
		"Content-Disposition": attachment(filename),
	})
}

func (h *Handler) uploadDataset(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, formError(err, "file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	name := c.PostForm("name")
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(fh.Filename, ".csv")
	}
	ds, err := h.Datasets.Upload(c.Request.Context(), name, c.PostForm("description"), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "dataset/"+ds.ID, map[string]interface{}{"name": ds.Name, "rows": ds.RowCount})
	ok(c, http.StatusCreated, ds)
}

type snapshotRequest struct {
	Report string `json:"report"`
	Month  string `json:"month"`
	Name   string `json:"name"`
}

func (h *Handler) snapshotDataset(c *gin.Context) {
	var req snapshotRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Report == "" {
		h.fail(c, common.ErrInvalidInputError("report is required"))
		return
	}
	ds, err := h.Datasets.Snapshot(c.Request.Context(), req.Report, req.Month, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionCreate, "dataset/"+ds.ID, map[string]interface{}{"source": ds.Source, "rows": ds.RowCount})
	ok(c, http.StatusCreated, ds)
}

func (h *Handler) deleteDataset(c *gin.Context) {
	id := c.Param("id")
	if err := h.Datasets.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, audit.ActionDelete, "dataset/"+id, nil)
	ok(c, http.StatusOK, gin.H{"id": id})
}
