// Package extract pulls per-page text out of uploaded files.
package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"docchat/internal/models"
)

var (
	ErrNotPDF   = errors.New("file is not a PDF")
	ErrNoPages  = errors.New("PDF contains no pages")
	whitespaces = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ")
)

// Pages extracts the plain text of every page, keeping page numbers so
// chunks can be traced back to their origin. Pages whose text cannot
// be decoded are kept with empty content rather than aborting the
// whole document.
func Pages(path string) ([]models.Page, error) {
	if err := checkHeader(path); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, ErrNoPages
	}

	pages := make([]models.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{PageNumber: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("file", path).Msg("Failed to extract page text")
			text = ""
		}
		pages = append(pages, models.Page{
			PageNumber: i,
			Text:       collapseWhitespace(text),
		})
	}
	return pages, nil
}

// checkHeader rejects files without the %PDF magic before handing them
// to the parser.
func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := f.Read(header); err != nil {
		return ErrNotPDF
	}
	if string(header) != "%PDF" {
		return ErrNotPDF
	}
	return nil
}

func collapseWhitespace(text string) string {
	text = whitespaces.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
