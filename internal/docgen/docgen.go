// Package docgen fills the technical-sheet DOCX template. It is a mechanical
// output sink: fixed placeholder set in, one document file out.
package docgen

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nguyenthenguyen/docx"

	"github.com/btp-tools/fichetech/internal/models"
)

// templateImage is the placeholder picture inside the template archive that
// gets swapped for the scraped product image.
const templateImage = "word/media/image1.png"

// Context carries everything the template consumes.
type Context struct {
	Record    *models.ExtractionRecord
	Rows      []models.CharacteristicRow
	ImagePath string
	Date      time.Time
}

type Renderer struct {
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{logger: logger.With("component", "docgen")}
}

// PairCharacteristics groups characteristics into rows of two cells for the
// template's two-column layout. An odd leftover pads the second cell with
// empty titre/valeur.
func PairCharacteristics(chars models.Characteristics) []models.CharacteristicRow {
	rows := make([]models.CharacteristicRow, 0, (len(chars)+1)/2)
	for i := 0; i < len(chars); i += 2 {
		row := models.CharacteristicRow{
			Item1: models.CharacteristicCell{Titre: chars[i].Name, Valeur: chars[i].Value},
		}
		if i+1 < len(chars) {
			row.Item2 = models.CharacteristicCell{Titre: chars[i+1].Name, Valeur: chars[i+1].Value}
		}
		rows = append(rows, row)
	}
	return rows
}

// Render fills templatePath and writes the result to outPath.
func (r *Renderer) Render(templatePath, outPath string, ctx Context) error {
	doc, err := docx.ReadDocxFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to open template %s: %w", templatePath, err)
	}
	defer doc.Close()

	editable := doc.Editable()

	record := ctx.Record
	if record == nil {
		record = &models.ExtractionRecord{}
	}

	replacements := map[string]string{
		"{{TITRE}}":            record.Titre,
		"{{REFERENCE}}":        record.Reference,
		"{{DESCRIPTION}}":      record.Description,
		"{{AVANTAGES}}":        strings.Join(record.Avantages, "\n"),
		"{{UTILISATION}}":      strings.Join(record.Utilisation, "\n"),
		"{{CARACTERISTIQUES}}": formatRows(ctx.Rows),
		"{{DATE}}":             ctx.Date.Format("02/01/2006"),
	}
	for placeholder, value := range replacements {
		if err := editable.Replace(placeholder, value, -1); err != nil {
			return fmt.Errorf("failed to replace %s: %w", placeholder, err)
		}
	}

	if ctx.ImagePath != "" {
		if err := editable.ReplaceImage(templateImage, ctx.ImagePath); err != nil {
			// the template may ship without a placeholder picture
			r.logger.Warn("failed to replace template image", "error", err)
		}
	}

	if err := editable.WriteToFile(outPath); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	r.logger.Info("document generated", "path", outPath)
	return nil
}

func formatRows(rows []models.CharacteristicRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		left := cellText(row.Item1)
		right := cellText(row.Item2)
		if right == "" {
			lines = append(lines, left)
			continue
		}
		lines = append(lines, left+"\t"+right)
	}
	return strings.Join(lines, "\n")
}

func cellText(cell models.CharacteristicCell) string {
	if cell.Titre == "" && cell.Valeur == "" {
		return ""
	}
	return cell.Titre + " : " + cell.Valeur
}
