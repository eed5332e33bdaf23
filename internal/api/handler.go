package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"fetalscan/internal/document"
	"fetalscan/internal/lifecycle"
	"fetalscan/internal/logging"
	"fetalscan/internal/report"
	"fetalscan/internal/store"
)

const maxBodyBytes = 20 << 20

// HealthFunc reports storage health for GET /health.
type HealthFunc func(ctx context.Context) (store.Health, error)

// Handler exposes lifecycle operations as HTTP endpoints.
type Handler struct {
	ctrl   *lifecycle.Controller
	health HealthFunc
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler creates a handler over ctrl.
func NewHandler(ctrl *lifecycle.Controller, health HealthFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		ctrl:   ctrl,
		health: health,
		logger: logging.NewComponentLogger(logger, "api"),
		now:    time.Now,
	}
}

// RegisterRoutes registers the report endpoints on g, which is expected to
// be mounted at /api.
//
//	GET    /draft                 - live draft, warnings, unsaved flag
//	PATCH  /draft                 - merge a partial JSON document into the draft
//	DELETE /draft                 - clear the draft
//	POST   /draft/archive         - append a draft snapshot to the archive
//	POST   /draft/finalize        - validate and save the draft as a final report
//	GET    /draft/warnings        - clinical warnings
//	GET    /draft/validation      - validation errors without gating
//	GET    /draft/document        - validated PDF of the draft
//	GET    /archive               - archived drafts (q, status filters)
//	POST   /archive/:key/promote  - move to final as Reviewed (confirm=true)
//	DELETE /archive/:key          - delete (confirm=true)
//	GET    /archive/:key/document - PDF
//	POST   /archive/:key/edit     - open as the draft
//	GET    /final                 - final reports (q, status filters)
//	DELETE /final/:key            - delete (confirm=true)
//	GET    /final/:key/document   - PDF
//	POST   /final/:key/edit       - open as the draft
//	GET    /stats                 - dashboard counters
//	GET    /export                - final reports as a JSON download
//	GET    /backup                - full backup as a JSON download
//	GET    /settings              - settings in effect
//	PUT    /settings              - replace settings
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/draft", h.GetDraft)
	g.PATCH("/draft", h.PatchDraft)
	g.DELETE("/draft", h.ClearDraft)
	g.POST("/draft/archive", h.ArchiveDraft)
	g.POST("/draft/finalize", h.FinalizeDraft)
	g.GET("/draft/warnings", h.DraftWarnings)
	g.GET("/draft/validation", h.DraftValidation)
	g.GET("/draft/document", h.DraftDocument)

	g.GET("/archive", h.listHandler(report.StateArchivedDraft))
	g.POST("/archive/:key/promote", h.PromoteArchived)
	g.DELETE("/archive/:key", h.deleteHandler(report.StateArchivedDraft))
	g.GET("/archive/:key/document", h.documentHandler(report.StateArchivedDraft))
	g.POST("/archive/:key/edit", h.editHandler(report.StateArchivedDraft))

	g.GET("/final", h.listHandler(report.StateFinal))
	g.DELETE("/final/:key", h.deleteHandler(report.StateFinal))
	g.GET("/final/:key/document", h.documentHandler(report.StateFinal))
	g.POST("/final/:key/edit", h.editHandler(report.StateFinal))

	g.GET("/stats", h.Stats)
	g.GET("/export", h.Export)
	g.GET("/backup", h.Backup)
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.PutSettings)
}

// GetDraft handles GET /api/draft.
func (h *Handler) GetDraft(c echo.Context) error {
	return c.JSON(http.StatusOK, h.ctrl.State())
}

// PatchDraft handles PATCH /api/draft. The body is a partial record body
// shaped like the stored "data" object, plus an optional "image".
func (h *Handler) PatchDraft(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body"))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "request body is empty"))
	}
	state, err := h.ctrl.UpdateJSON(c.Request().Context(), raw)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// ClearDraft handles DELETE /api/draft.
func (h *Handler) ClearDraft(c echo.Context) error {
	state, err := h.ctrl.ClearDraft(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// ArchiveDraft handles POST /api/draft/archive.
func (h *Handler) ArchiveDraft(c echo.Context) error {
	rec, err := h.ctrl.SaveDraftToArchive(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, RecordResponse{Record: rec})
}

// FinalizeDraft handles POST /api/draft/finalize.
func (h *Handler) FinalizeDraft(c echo.Context) error {
	rec, err := h.ctrl.SaveAsFinalReport(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, RecordResponse{Record: rec})
}

// DraftWarnings handles GET /api/draft/warnings.
func (h *Handler) DraftWarnings(c echo.Context) error {
	return c.JSON(http.StatusOK, WarningsResponse{Warnings: h.ctrl.Warnings()})
}

// DraftValidation handles GET /api/draft/validation.
func (h *Handler) DraftValidation(c echo.Context) error {
	errs := h.ctrl.Validate()
	return c.JSON(http.StatusOK, ValidationResponse{Valid: len(errs) == 0, Errors: errs})
}

// DraftDocument handles GET /api/draft/document.
func (h *Handler) DraftDocument(c echo.Context) error {
	var buf bytes.Buffer
	rendered, err := h.ctrl.GenerateDocument(c.Request().Context(), &buf)
	if err != nil {
		return h.writeError(c, err)
	}
	return attachment(c, rendered.FileName, document.ContentType, buf.Bytes())
}

// PromoteArchived handles POST /api/archive/:key/promote.
func (h *Handler) PromoteArchived(c echo.Context) error {
	key, err := keyParam(c)
	if err != nil {
		return h.writeError(c, err)
	}
	rec, err := h.ctrl.PromoteToFinal(c.Request().Context(), key, confirmed(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, RecordResponse{Record: rec})
}

func (h *Handler) listHandler(source report.State) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var (
			records []report.Record
			err     error
		)
		if source == report.StateFinal {
			records, err = h.ctrl.ListFinal(ctx)
		} else {
			records, err = h.ctrl.ListArchived(ctx)
		}
		if err != nil {
			return h.writeError(c, err)
		}
		term, status := c.QueryParam("q"), c.QueryParam("status")
		if term != "" || status != "" {
			records = lifecycle.Search(records, term, status)
		}
		return c.JSON(http.StatusOK, recordList(records))
	}
}

func (h *Handler) deleteHandler(source report.State) echo.HandlerFunc {
	return func(c echo.Context) error {
		key, err := keyParam(c)
		if err != nil {
			return h.writeError(c, err)
		}
		ctx := c.Request().Context()
		var rec report.Record
		if source == report.StateFinal {
			rec, err = h.ctrl.DeleteFinal(ctx, key, confirmed(c))
		} else {
			rec, err = h.ctrl.DeleteArchived(ctx, key, confirmed(c))
		}
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON(http.StatusOK, RecordResponse{Record: rec})
	}
}

func (h *Handler) documentHandler(source report.State) echo.HandlerFunc {
	return func(c echo.Context) error {
		key, err := keyParam(c)
		if err != nil {
			return h.writeError(c, err)
		}
		var buf bytes.Buffer
		rendered, err := h.ctrl.RenderRecord(c.Request().Context(), source, key, &buf)
		if err != nil {
			return h.writeError(c, err)
		}
		return attachment(c, rendered.FileName, document.ContentType, buf.Bytes())
	}
}

func (h *Handler) editHandler(source report.State) echo.HandlerFunc {
	return func(c echo.Context) error {
		key, err := keyParam(c)
		if err != nil {
			return h.writeError(c, err)
		}
		state, err := h.ctrl.OpenForEdit(c.Request().Context(), source, key)
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON(http.StatusOK, state)
	}
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.ctrl.Stats(c.Request().Context(), h.now())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Export handles GET /api/export.
func (h *Handler) Export(c echo.Context) error {
	var buf bytes.Buffer
	if _, err := h.ctrl.ExportFinal(c.Request().Context(), &buf); err != nil {
		return h.writeError(c, err)
	}
	return attachment(c, lifecycle.ExportFileName(h.now()), echo.MIMEApplicationJSON, buf.Bytes())
}

// Backup handles GET /api/backup.
func (h *Handler) Backup(c echo.Context) error {
	var buf bytes.Buffer
	if _, err := h.ctrl.Backup(c.Request().Context(), &buf); err != nil {
		return h.writeError(c, err)
	}
	return attachment(c, lifecycle.BackupFileName(h.now()), echo.MIMEApplicationJSON, buf.Bytes())
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.ctrl.Settings())
}

// PutSettings handles PUT /api/settings. Keys missing from the body keep
// their current values.
func (h *Handler) PutSettings(c echo.Context) error {
	settings := h.ctrl.Settings()
	if err := c.Bind(&settings); err != nil {
		return h.writeError(c, echo.NewHTTPError(http.StatusBadRequest, "invalid settings body"))
	}
	saved, err := h.ctrl.SaveSettings(c.Request().Context(), settings)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	if h.health == nil {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
	health, err := h.health(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Store: health})
}

func keyParam(c echo.Context) (string, error) {
	raw := c.Param("key")
	key, err := url.PathUnescape(raw)
	if err != nil || key == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid report key")
	}
	return key, nil
}

func confirmed(c echo.Context) bool {
	ok, _ := strconv.ParseBool(c.QueryParam("confirm"))
	return ok
}

func attachment(c echo.Context, name, contentType string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	return c.Blob(http.StatusOK, contentType, body)
}
