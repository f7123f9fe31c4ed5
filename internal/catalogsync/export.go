package catalogsync

import (
	"bytes"
	"fmt"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/xuri/excelize/v2"
)

const (
	sheetStatusChanges = "Mudanças de status"
	sheetAttention     = "Atenção"
	sheetITErrors      = "Erros de TI"
)

// ExportReport renders a run report as a workbook with one sheet per
// notification channel.
func ExportReport(r *report.Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Color: "#FFFFFF",
			Size:  11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#548235"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	dataStyleID, err := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Vertical: "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("data style: %w", err)
	}

	changes := make([][]string, 0, len(r.StatusChanges))
	for _, c := range r.StatusChanges {
		changes = append(changes, []string{c.SKU, c.Variant, c.OldStatus, c.NewStatus, c.Reason})
	}
	sheets := []struct {
		name    string
		headers []string
		rows    [][]string
	}{
		{sheetStatusChanges, []string{"SKU", "Variante", "Status antigo", "Novo status", "Motivo"}, changes},
		{sheetAttention, []string{"Código", "Mensagem"}, issueRows(r.Attention)},
		{sheetITErrors, []string{"Código", "Mensagem"}, issueRows(r.ITErrors)},
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, sh.name, sh.headers, sh.rows, headerStyleID, dataStyleID); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sh.name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func issueRows(issues []report.Issue) [][]string {
	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []string{is.Code, is.Message})
	}
	return rows
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string, headerStyle, dataStyle int) error {
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}

	colMaxWidth := make([]float64, len(headers))
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
		colMaxWidth[i] = float64(len([]rune(h)))
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
			if w := float64(len([]rune(v))); j < len(colMaxWidth) && w > colMaxWidth[j] {
				colMaxWidth[j] = w
			}
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, fmt.Sprintf("%s%d", lastCol, i+2), dataStyle); err != nil {
			return err
		}
	}

	for i, maxW := range colMaxWidth {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := maxW*1.2 + 4
		if width < 8 {
			width = 8
		}
		if width > 80 {
			width = 80
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	return f.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil)
}
