package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"
	"factory-backend/internal/storage"
	"factory-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// ScheduleReportData holds everything printed on a plan's schedule sheet
type ScheduleReportData struct {
	Plan      *models.ProductionPlan
	Tasks     []models.ScheduledTask
	Shortages []models.MaterialShortage
	Generated time.Time
}

// ReportService handles schedule sheet generation and archiving
type ReportService struct {
	Plans    *PlanService
	Schedule *ScheduleService
	Archive  storage.Archiver // nil when archiving is not configured
}

func NewReportService(plans *PlanService, schedule *ScheduleService, archive storage.Archiver) *ReportService {
	return &ReportService{
		Plans:    plans,
		Schedule: schedule,
		Archive:  archive,
	}
}

// GetScheduleReportData collects the plan, its task bars and its shortages
func (s *ReportService) GetScheduleReportData(ctx context.Context, planID int) (*ScheduleReportData, error) {
	plan, err := s.Plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.Schedule.GetSchedule(ctx, planID)
	if err != nil {
		return nil, err
	}
	shortages, err := s.Plans.GetMaterialShortages(ctx, planID)
	if err != nil {
		return nil, err
	}
	return &ScheduleReportData{
		Plan:      plan,
		Tasks:     tasks,
		Shortages: shortages,
		Generated: timeutil.Now(),
	}, nil
}

// GenerateSchedulePDF renders the schedule sheet
func (s *ReportService) GenerateSchedulePDF(data *ScheduleReportData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(277, 10, fmt.Sprintf("Production Schedule - %s", data.Plan.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Plan #%d (%s)   Generated: %s",
		data.Plan.ID, data.Plan.Status, data.Generated.Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Task table
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(277, 8, "Tasks", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(12, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(75, 7, "Semi-finished good", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Start", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Days", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Required", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Produced", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Progress", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Status", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for i, t := range data.Tasks {
		status := ""
		switch {
		case t.ProgressFraction >= 1:
			status = "Done"
		case t.IsActiveToday:
			status = "Active"
		case t.IsSplitRemainder:
			status = "Remainder"
		}
		fill := t.IsActiveToday
		if fill {
			pdf.SetFillColor(255, 245, 200) // Light yellow for active bars
		}
		name := truncateName(t.SemiName, 38)
		pdf.CellFormat(12, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(75, 6, name, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(30, 6, timeutil.FormatDate(t.StartDate), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", t.DurationDays), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(35, 6, t.RequiredQty.String(), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(35, 6, t.ProducedQty.String(), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.0f%%", t.ProgressFraction*100), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(30, 6, status, "1", 1, "C", fill, 0, "")
	}
	if len(data.Tasks) == 0 {
		pdf.CellFormat(277, 6, "No items in this plan", "1", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	// Shortages
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(277, 8, "Projected Material Shortages", "1", 1, "L", true, 0, "")

	if len(data.Shortages) == 0 {
		pdf.SetFillColor(200, 255, 200) // Light green when stock covers the plan
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(277, 8, "NO SHORTAGES", "1", 1, "C", true, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(35, 7, "Code", "1", 0, "C", true, 0, "")
		pdf.CellFormat(82, 7, "Material", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Stock", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Demand", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Projected", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Minimum", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.SetFillColor(255, 200, 200) // Light red for shortages
		for _, m := range data.Shortages {
			pdf.CellFormat(35, 6, m.Code, "1", 0, "L", false, 0, "")
			pdf.CellFormat(82, 6, m.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, m.CurrentStock.String(), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, m.Demand.String(), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, m.ProjectedBalance.String(), "1", 0, "R", true, 0, "")
			pdf.CellFormat(40, 6, m.MinimumStock.String(), "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ScheduleFileName is the download and archive name of a plan's sheet
func ScheduleFileName(data *ScheduleReportData) string {
	return fmt.Sprintf("plan-%d-schedule-%s.pdf", data.Plan.ID, data.Generated.Format("20060102-150405"))
}

// ArchiveSchedulePDF uploads a rendered sheet and returns its object key
func (s *ReportService) ArchiveSchedulePDF(ctx context.Context, data *ScheduleReportData, pdf []byte) (string, error) {
	if s.Archive == nil {
		return "", apperrors.Validationf("report archiving is not configured")
	}
	return s.Archive.Archive(ctx, ScheduleFileName(data), "application/pdf", pdf)
}

// truncateName shortens s to at most n characters, ending in "..."
func truncateName(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
