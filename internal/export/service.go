package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/francis4531/Offerwise-sub000/internal/entity"
	"github.com/francis4531/Offerwise-sub000/internal/scoring"
)

// Service is a tiny façade that renders an analysis result as an XLSX
// workbook for download.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BuildReportXLSX returns a workbook with a summary sheet, the findings and
// the discrepancy records. The risk label always comes from the shared
// threshold table, never a local copy.
func (s *Service) BuildReportXLSX(res *entity.AnalysisResult) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()

	if err := s.writeSummary(f, res); err != nil {
		return nil, err
	}
	if err := s.writeFindings(f, res); err != nil {
		return nil, err
	}
	if err := s.writeDiscrepancies(f, res); err != nil {
		return nil, err
	}

	// drop the default sheet
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}
	if idx, _ := f.GetSheetIndex("Summary"); idx != -1 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("report built",
		"analysis_id", res.AnalysisID,
		"findings", len(res.Findings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummary(f *excelize.File, res *entity.AnalysisResult) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Analysis ID", res.AnalysisID.String()},
		{"Quality score", res.Score.Quality},
		{"Risk score", res.Score.Risk},
		{"Risk category", scoring.RiskLabel(res.Score.Risk)},
		{"Transparency", res.Score.Transparency},
		{"Estimated repair total", res.Score.TotalCost},
		{"Critical findings", res.Score.Criticals},
		{"Suggested offer adjustment", res.OfferAdjust},
		{"Created", res.CreatedAt.Format(time.RFC3339)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeFindings(f *excelize.File, res *entity.AnalysisResult) error {
	const sheet = "Findings"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{"Category", "Severity", "Description", "Cost Low", "Cost High", "Page", "Source", "Confidence", "Evidence"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, fd := range res.Findings {
		row := []any{
			string(fd.Category), string(fd.Severity), fd.Description,
			fd.CostLow, fd.CostHigh, fd.Page, string(fd.DocKind),
			string(fd.Confidence), fd.Evidence,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeDiscrepancies(f *excelize.File, res *entity.AnalysisResult) error {
	const sheet = "Discrepancies"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{"Category", "Seller Answer", "Classification", "Matched Findings"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, d := range res.Discrepancies {
		row := []any{
			string(d.Answer.Category), d.Answer.Answer, string(d.Class), len(d.Findings),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
