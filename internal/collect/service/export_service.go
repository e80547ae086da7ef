package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-collect/internal/collect/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 提交数据导出服务
type ExportService struct {
	formRepo *repository.FormRepository
	respRepo *repository.ResponseRepository
}

// NewExportService 创建导出服务
func NewExportService(formRepo *repository.FormRepository, respRepo *repository.ResponseRepository) *ExportService {
	return &ExportService{formRepo: formRepo, respRepo: respRepo}
}

const exportPageSize = 500

// ExportResponses 导出表单全部提交记录为xlsx
func (s *ExportService) ExportResponses(ctx context.Context, formID string) (*excelize.File, string, error) {
	form, err := s.formRepo.FindByID(ctx, formID)
	if err != nil {
		return nil, "", fmt.Errorf("find form: %w", err)
	}
	if form == nil {
		return nil, "", fmt.Errorf("form %s not found", formID)
	}

	f := excelize.NewFile()
	sheet := "Responses"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	headers := []string{"ID", "提交人", "提交时间"}
	for _, field := range form.Fields {
		headers = append(headers, field.Label)
	}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	row := 2
	for page := 1; ; page++ {
		responses, _, err := s.respRepo.ListByForm(ctx, formID, page, exportPageSize)
		if err != nil {
			return nil, "", fmt.Errorf("list responses: %w", err)
		}
		if len(responses) == 0 {
			break
		}
		for _, resp := range responses {
			cells := []interface{}{resp.ID, resp.UserID, resp.CreatedAt.Format("2006-01-02 15:04:05")}
			for _, field := range form.Fields {
				cells = append(cells, cellValue(resp.Values[field.Label]))
			}
			for i, v := range cells {
				col, _ := excelize.ColumnNumberToName(i + 1)
				f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
			}
			row++
		}
		if len(responses) < exportPageSize {
			break
		}
	}

	filename := fmt.Sprintf("%s-responses-%s.xlsx", form.Name, time.Now().Format("20060102"))
	return f, filename, nil
}

// cellValue 将提交值转为单元格文本；多选值逗号连接
func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return val
	}
}
