package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/database"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/database/postgres"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/feed"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/parser"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/rest"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Batches is what the HTTP layer needs from the Service.
type Batches interface {
	ProcessFeed(ctx context.Context, records []feed.Record, rejected ...feed.RowError) (*report.Report, error)
	ScanCatalog(ctx context.Context) (*report.Report, error)
	AnalyzeProduct(ctx context.Context, productID string) (*report.Report, error)
	StartAnalyzeAll(timeout time.Duration) (uuid.UUID, error)
	GetRun(ctx context.Context, id uuid.UUID) (*report.Report, error)
	GetSnapshot(ctx context.Context, productID string) (*merge.Snapshot, error)
}

type Handler struct {
	service         Batches
	analysisTimeout time.Duration
}

func NewHandler(service Batches, analysisTimeout time.Duration) *Handler {
	if analysisTimeout <= 0 {
		analysisTimeout = 2 * time.Hour
	}
	return &Handler{service: service, analysisTimeout: analysisTimeout}
}

type AnalysisStarted struct {
	RunID uuid.UUID `json:"run_id"`
}

// PushFeed handles POST /feed/sap
// Applies a JSON feed pushed by SAP
func (h *Handler) PushFeed(c echo.Context) error {
	records, rejected, err := feed.DecodeJSON(c.Request().Body)
	if err != nil {
		return rest.NewUnprocessableEntity("erro ao processar feed")
	}
	if len(records) == 0 && len(rejected) == 0 {
		return rest.NewBadRequestError("feed vazio")
	}

	rep, err := h.service.ProcessFeed(c.Request().Context(), records, rejected...)
	if err != nil {
		return batchError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

// ImportFeed handles POST /feed/sap/import
// Applies a feed uploaded as a spreadsheet
func (h *Handler) ImportFeed(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return rest.NewBadRequestError("arquivo nao fornecido")
	}

	src, err := file.Open()
	if err != nil {
		return rest.NewInternalServerError("erro ao abrir arquivo")
	}
	defer src.Close()

	records, rejected, err := feed.ReadSpreadsheet(src)
	if err != nil {
		return rest.NewBadRequestValidationError("planilha invalida", []rest.Causes{
			{Field: "file", Message: err.Error()},
		})
	}

	rep, err := h.service.ProcessFeed(c.Request().Context(), records, rejected...)
	if err != nil {
		return batchError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

// ScanCatalog handles POST /catalog/scan
func (h *Handler) ScanCatalog(c echo.Context) error {
	rep, err := h.service.ScanCatalog(c.Request().Context())
	if err != nil {
		return batchError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

// AnalyzeProduct handles POST /products/:id/analyze
func (h *Handler) AnalyzeProduct(c echo.Context) error {
	id := parser.ProductGID(c.Param("id"))
	if id == "" {
		return rest.NewBadRequestError("id do produto e obrigatorio")
	}

	rep, err := h.service.AnalyzeProduct(c.Request().Context(), id)
	if err != nil {
		return batchError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

// AnalyzeAll handles POST /products/analyze
// Starts the analysis batch and returns its run id right away
func (h *Handler) AnalyzeAll(c echo.Context) error {
	runID, err := h.service.StartAnalyzeAll(h.analysisTimeout)
	if err != nil {
		return batchError(err)
	}
	return c.JSON(http.StatusAccepted, AnalysisStarted{RunID: runID})
}

// GetSnapshot handles GET /products/:id/snapshot
func (h *Handler) GetSnapshot(c echo.Context) error {
	id := parser.ProductGID(c.Param("id"))
	if id == "" {
		return rest.NewBadRequestError("id do produto e obrigatorio")
	}

	snap, err := h.service.GetSnapshot(c.Request().Context(), id)
	if err != nil {
		return database.HandleError(err)
	}
	if snap == nil {
		return rest.NewNotFoundError("snapshot nao encontrado")
	}
	return c.JSON(http.StatusOK, snap)
}

// GetRun handles GET /runs/:id
func (h *Handler) GetRun(c echo.Context) error {
	rep, apiErr := h.run(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, rep)
}

// ExportRun handles GET /runs/:id/export
// Returns the run report as a spreadsheet
func (h *Handler) ExportRun(c echo.Context) error {
	rep, apiErr := h.run(c)
	if apiErr != nil {
		return apiErr
	}

	buf, err := ExportReport(rep)
	if err != nil {
		return rest.NewInternalServerError("erro ao gerar planilha")
	}

	filename := fmt.Sprintf("run-%s-%s.xlsx", rep.Kind, rep.StartedAt.Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) run(c echo.Context) (*report.Report, *rest.ApiErr) {
	id, err := parser.RunID(c.Param("id"))
	if err != nil {
		return nil, rest.NewBadRequestError("id da execucao invalido")
	}
	rep, err := h.service.GetRun(c.Request().Context(), id)
	if errors.Is(err, postgres.ErrRunNotFound) {
		return nil, rest.NewNotFoundError("execucao nao encontrada")
	}
	if err != nil {
		return nil, database.HandleError(err)
	}
	return rep, nil
}

func batchError(err error) *rest.ApiErr {
	switch {
	case errors.Is(err, ErrBusy):
		return rest.NewConflictError("outro lote esta em execucao")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return rest.NewInternalServerError("tempo limite excedido")
	default:
		return rest.NewInternalServerError("erro ao executar lote")
	}
}
