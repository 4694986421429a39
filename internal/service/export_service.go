package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/repository"
)

const (
	exportFilePrefix  = "成绩"
	exportHeaderColor = "#4472C4"
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 格式：每个成绩窗口一个 Sheet，行为学生，列为科目，单元格为 "分数/满分 (百分比%)"。
type ExportService interface {
	ExportResults(ctx context.Context, q *dto.ResultListQuery) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) ExportResults(ctx context.Context, q *dto.ResultListQuery) (*bytes.Buffer, string, error) {
	filter := repository.ResultFilter{
		ResultLock:  q.ResultLock,
		StudentCode: q.StudentCode,
		Subject:     q.Subject,
	}
	results, _, err := s.repo.Result.List(ctx, filter, repository.ListOptions{})
	if err != nil {
		s.logger.Error("查询成绩失败", zap.Error(err))
		return nil, "", err
	}
	if len(results) == 0 {
		return nil, "", ErrExportNoResults
	}

	// 1. 建索引: 窗口 → 学生 → 科目 → 单元格文本
	type sheetData struct {
		students map[string]map[string]string
		subjects map[string]struct{}
	}
	sheets := make(map[string]*sheetData)
	for i := range results {
		r := &results[i]
		sd, ok := sheets[r.ResultLock]
		if !ok {
			sd = &sheetData{
				students: make(map[string]map[string]string),
				subjects: make(map[string]struct{}),
			}
			sheets[r.ResultLock] = sd
		}
		if sd.students[r.StudentCode] == nil {
			sd.students[r.StudentCode] = make(map[string]string)
		}
		text := fmt.Sprintf("%g", r.Marks)
		if r.TotalMarks != nil {
			text = fmt.Sprintf("%g/%g (%.2f%%)", r.Marks, *r.TotalMarks, r.Percentage())
		}
		sd.students[r.StudentCode][r.Subject] = text
		sd.subjects[r.Subject] = struct{}{}
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{exportHeaderColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for _, title := range sortedKeys(sheets) {
		sd := sheets[title]
		sheetName := sheetNameFor(title)
		if _, err := f.NewSheet(sheetName); err != nil {
			s.logger.Error("创建 Sheet 失败", zap.String("sheet", sheetName), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}

		subjects := sortedKeys(sd.subjects)
		f.SetColWidth(sheetName, "A", "A", 24)
		if len(subjects) > 0 {
			f.SetColWidth(sheetName, colName(1), colName(len(subjects)), 18)
		}

		// 表头
		f.SetCellValue(sheetName, cell("A", 1), "学号")
		for i, subject := range subjects {
			f.SetCellValue(sheetName, cell(colName(1+i), 1), subject)
		}
		f.SetCellStyle(sheetName, "A1", cell(colName(len(subjects)), 1), headerStyle)

		// 数据行
		row := 2
		for _, code := range sortedKeys(sd.students) {
			f.SetCellValue(sheetName, cell("A", row), code)
			for i, subject := range subjects {
				text, ok := sd.students[code][subject]
				if !ok {
					text = "-"
				}
				f.SetCellValue(sheetName, cell(colName(1+i), row), text)
			}
			row++
		}
	}
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := exportFilePrefix + ".xlsx"
	if q.ResultLock != "" {
		filename = fmt.Sprintf("%s_%s.xlsx", exportFilePrefix, q.ResultLock)
	}
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sheet 名最长 31 个字符，且不能包含 : \ / ? * [ ]
func sheetNameFor(title string) string {
	out := make([]rune, 0, len(title))
	for _, c := range title {
		switch c {
		case ':', '\\', '/', '?', '*', '[', ']':
			c = '_'
		}
		out = append(out, c)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "Sheet"
	}
	return string(out)
}
