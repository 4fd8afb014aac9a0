// Package report generates the operator-facing session report: a PDF with
// the plant state, the annunciator list, tripped interlocks, and trend
// charts rendered from the telemetry recorder.
package report

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/holla2040/plantsim/internal/plant"
)

// trendedValues are the recorder series drawn in the report, in order.
// Values never recorded are skipped.
var trendedValues = []string{"tankLevel", "feedFlow", "demandFlow", "pumpEffort"}

// WritePDF creates the session report for the given plant.
func WritePDF(w io.Writer, p *plant.Plant) error {
	snap := p.Snapshot()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	// --- Page 1: session header ---
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Plant Session Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	info := []struct{ label, value string }{
		{"Plant", snap.Name},
		{"Generated", time.Now().Format(time.RFC3339)},
		{"Simulated time", fmt.Sprintf("%.1f s (%d steps at %.0f ms)", snap.SimTime, snap.Steps, snap.StepTime*1000)},
		{"Tank level", fmt.Sprintf("%.1f %% (setpoint %.1f %%)", snap.Level, snap.Setpoint)},
		{"Feed flow", fmt.Sprintf("%.1f (demand %.1f)", snap.FeedFlow, snap.Demand)},
		{"Pump", fmt.Sprintf("%s, effort %.0f", snap.PumpState, snap.PumpEffort)},
		{"Feed valve", fmt.Sprintf("%.1f %% in %s mode", snap.FeedValveOpening, snap.FeedValveMode)},
	}
	for _, item := range info {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// --- Annunciator list ---
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Alarms", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(snap.Alarms) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, "No active alarms.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(70, 7, "Alarm", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, "State", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 7, "Suppressed", "1", 0, "C", true, 0, "")
		pdf.CellFormat(0, 7, "Acknowledged", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, a := range snap.Alarms {
			pdf.CellFormat(70, 7, truncate(a.Name, 40), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, a.StateLabel, "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 7, yesNo(a.Suppressed), "1", 0, "C", false, 0, "")
			pdf.CellFormat(0, 7, yesNo(a.Acknowledged), "1", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(6)

	// --- Tripped interlocks ---
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Tripped Interlocks", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(snap.Tripped) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, "All interlocks permissive.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(50, 7, "Signal", "1", 0, "L", true, 0, "")
		pdf.CellFormat(80, 7, "Reason", "1", 0, "L", true, 0, "")
		pdf.CellFormat(0, 7, "Since", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, c := range snap.Tripped {
			pdf.CellFormat(50, 7, truncate(c.Name, 28), "1", 0, "L", false, 0, "")
			pdf.CellFormat(80, 7, truncate(c.Reason, 48), "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, c.TrippedAt.Format("15:04:05"), "1", 1, "L", false, 0, "")
		}
	}

	// --- Trend pages ---
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Trends", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, name := range trendedValues {
		png, err := RenderTrendPNG(p.Recorder(), name, 1)
		if err != nil {
			log.Printf("report: skip trend %s: %v", name, err)
			continue
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, 15, pdf.GetY(), 180, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	return pdf.Output(w)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
