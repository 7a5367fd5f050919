// Package export renders a session transcript for download.
package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

const (
	pageMargin = 15.0
	lineHeight = 5.5
)

// TranscriptPDF writes the session's story as a PDF. Optional font
// paths allow a UTF-8 font for full Vietnamese rendering; with none
// set, text is transliterated to the built-in font's codepage.
type TranscriptPDF struct {
	FontPath     string // regular TTF, optional
	BoldFontPath string // bold TTF, optional
}

// Write renders the transcript to w.
func (t *TranscriptPDF) Write(w io.Writer, gs *state.GameState) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	regular, bold := "Helvetica", "Helvetica"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if t.FontPath != "" {
		pdf.AddUTF8Font("story", "", t.FontPath)
		regular = "story"
		bold = "story"
		translate = func(s string) string { return s }
		if t.BoldFontPath != "" {
			pdf.AddUTF8Font("story-bold", "", t.BoldFontPath)
			bold = "story-bold"
		}
	}

	pdf.AddPage()

	title := gs.Title
	if title == "" {
		title = gs.World.StoryName
	}
	pdf.SetFont(bold, boldStyle(bold), 18)
	pdf.MultiCell(0, 9, translate(title), "", "C", false)
	pdf.Ln(2)

	pdf.SetFont(regular, "", 10)
	meta := fmt.Sprintf("%s - luot %d - ngay %d, mua %s",
		gs.World.PlayerName, gs.TurnCount, gs.Time.Day, gs.Time.Season)
	pdf.MultiCell(0, lineHeight, translate(meta), "", "C", false)
	pdf.Ln(4)

	for i, turn := range gs.History {
		if turn.PlayerAction != "" {
			pdf.SetFont(bold, boldStyle(bold), 11)
			pdf.MultiCell(0, lineHeight, translate(fmt.Sprintf("%d. %s", i+1, turn.PlayerAction)), "", "L", false)
			pdf.Ln(1)
		}
		pdf.SetFont(regular, "", 11)
		pdf.MultiCell(0, lineHeight, translate(turn.StoryText), "", "L", false)
		if turn.StatusNarration != "" {
			pdf.SetFont(regular, italicStyle(regular), 9)
			pdf.MultiCell(0, lineHeight, translate(turn.StatusNarration), "", "L", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	return nil
}

// boldStyle returns the style flag for the bold face: built-in fonts
// use a style flag, embedded UTF-8 fonts are a separate family.
func boldStyle(family string) string {
	if family == "Helvetica" {
		return "B"
	}
	return ""
}

func italicStyle(family string) string {
	if family == "Helvetica" {
		return "I"
	}
	return ""
}
