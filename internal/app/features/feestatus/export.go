// internal/app/features/feestatus/export.go
package feestatus

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/studentportal/internal/app/features/errors"
	"github.com/dalemusser/studentportal/internal/app/system/auditlog"
	"github.com/dalemusser/studentportal/internal/app/system/auth"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/studentportal/internal/domain/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	exportBaseName = "students_fee_status"
	exportSheet    = "FeeStatus"
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []string{"rollNumber", "firstName", "lastName", "feeStatus"}

func exportRow(s models.Student) []string {
	return []string{s.RollNumber.String(), s.FirstName, s.LastName, string(s.DisplayStatus())}
}

// ServeExportXLSX downloads the filtered roster as a spreadsheet.
// GET /fees/export.xlsx?roll=
func (h *Handler) ServeExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "xlsx", xlsxMIME, buildWorkbook)
}

// ServeExportPDF downloads the filtered roster as a PDF table.
// GET /fees/export.pdf?roll=
func (h *Handler) ServeExportPDF(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "pdf", "application/pdf", buildPDF)
}

func (h *Handler) serveExport(w http.ResponseWriter, r *http.Request, ext, mime string, build func([]models.Student) ([]byte, error)) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "fees export")
	defer cancel()

	rows := models.FilterByRoll(h.snapshotOrRefetch(ctx, u.UID), rollFilter(r))

	body, err := build(rows)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "build roster export failed", err, "Could not build the export.", "/fees")
		return
	}

	h.Audit.RosterExported(ctx, r, auditlog.Actor{UID: u.UID, Email: u.Email}, ext, len(rows))

	filename := exportBaseName + "." + ext
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))
	if _, err := w.Write(body); err != nil {
		h.Log.Warn("export write failed", zap.String("format", ext), zap.Error(err))
	}
}

// buildWorkbook renders rows into a single-sheet workbook.
func buildWorkbook(rows []models.Student) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, v := range exportHeader {
		header[i] = v
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "D1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, s := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		vals := exportRow(s)
		row := []any{vals[0], vals[1], vals[2], vals[3]}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// buildPDF renders rows into a one-table PDF.
func buildPDF(rows []models.Student) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "STUDENT FEE STATUS", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	colWidth := 190.0 / float64(len(exportHeader))
	pdf.SetFont("Arial", "B", 10)
	for _, h := range exportHeader {
		pdf.CellFormat(colWidth, 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, s := range rows {
		for _, v := range exportRow(s) {
			pdf.CellFormat(colWidth, 7, v, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
