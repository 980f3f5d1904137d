// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Layout constants for the A4 page.
const (
	pageMargin   = 15.0
	contentWidth = 180.0 // 210mm - 2*margin
	lineHeight   = 5.5
)

// RenderPDF writes the report as an A4 PDF at path, creating parent
// directories as needed.
func RenderPDF(path string, data *Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("OnSide report - page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	renderCover(pdf, data)
	for _, section := range data.Sections {
		renderSection(pdf, section)
	}
	if data.Insights != "" {
		renderInsights(pdf, data.Insights)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func renderCover(pdf *fpdf.Fpdf, data *Data) {
	pdf.AddPage()
	pdf.SetY(80)

	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(contentWidth, 14, "Competitive Intelligence Report", "", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 18)
	pdf.CellFormat(contentWidth, 10, data.Company.Name, "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(90, 90, 90)
	period := fmt.Sprintf("%s to %s",
		data.PeriodStart.Format("January 2, 2006"),
		data.PeriodEnd.Format("January 2, 2006"))
	pdf.CellFormat(contentWidth, 7, period, "", 1, "C", false, 0, "")
	pdf.CellFormat(contentWidth, 7,
		fmt.Sprintf("Generated %s", data.GeneratedAt.Format("January 2, 2006 15:04 UTC")),
		"", 1, "C", false, 0, "")
}

func renderSection(pdf *fpdf.Fpdf, section *CompetitorSection) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(contentWidth, 10, section.Competitor.Name, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	meta := fmt.Sprintf("%d new links this period", section.NewLinks)
	if section.Competitor.Domain != "" {
		meta = section.Competitor.Domain + "  |  " + meta
	}
	pdf.CellFormat(contentWidth, 6, meta, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	if len(section.Articles) > 0 {
		renderHeading(pdf, "News Coverage")
		for _, a := range section.Articles {
			renderLinkRow(pdf, a.Title, a.Source.Name, a.URL)
		}
		pdf.Ln(2)
	}

	if len(section.SearchHits) > 0 {
		renderHeading(pdf, "Web Mentions")
		for _, h := range section.SearchHits {
			renderLinkRow(pdf, h.Title, h.DisplayLink, h.Link)
		}
		pdf.Ln(2)
	}

	if section.Channel != nil || len(section.Videos) > 0 {
		renderHeading(pdf, "Video Activity")
		if section.Channel != nil {
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(40, 40, 40)
			pdf.MultiCell(contentWidth, lineHeight, fmt.Sprintf(
				"%s: %d subscribers, %d videos, %d total views",
				section.Channel.Title, section.Channel.Subscribers,
				section.Channel.Videos, section.Channel.Views), "", "L", false)
		}
		for _, v := range section.Videos {
			renderLinkRow(pdf, v.Title, v.PublishedAt.Format("2006-01-02"), v.URL)
		}
		pdf.Ln(2)
	}

	if section.Whois != nil || section.Geo != nil {
		renderDomainFacts(pdf, section)
	}

	if len(section.Warnings) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(160, 80, 0)
		pdf.MultiCell(contentWidth, lineHeight,
			"Data unavailable from: "+strings.Join(section.Warnings, ", "), "", "L", false)
	}
}

func renderHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(contentWidth, 8, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pageMargin, pdf.GetY(), pageMargin+contentWidth, pdf.GetY())
	pdf.Ln(2)
}

func renderLinkRow(pdf *fpdf.Fpdf, title, detail, url string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(40, 40, 40)
	pdf.MultiCell(contentWidth, lineHeight, "- "+title, "", "L", false)

	line := url
	if detail != "" {
		line = detail + " - " + url
	}
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.SetX(pageMargin + 4)
	pdf.MultiCell(contentWidth-4, 4.5, line, "", "L", false)
	pdf.Ln(1)
}

func renderDomainFacts(pdf *fpdf.Fpdf, section *CompetitorSection) {
	renderHeading(pdf, "Domain Facts")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(40, 40, 40)

	row := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, lineHeight, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentWidth-40, lineHeight, value, "", "L", false)
	}

	if w := section.Whois; w != nil {
		row("Registrar", w.Registrar)
		row("Registered", w.DateCreated)
		row("Expires", w.DateExpires)
	}
	if g := section.Geo; g != nil {
		location := strings.TrimSpace(strings.Join(nonEmpty(g.City, g.Region, g.Country), ", "))
		row("Hosted in", location)
		row("Network", g.Org)
	}
}

func renderInsights(pdf *fpdf.Fpdf, narrative string) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(contentWidth, 10, "Insights", "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(40, 40, 40)
	for _, paragraph := range strings.Split(narrative, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		pdf.MultiCell(contentWidth, lineHeight, paragraph, "", "L", false)
		pdf.Ln(2)
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
