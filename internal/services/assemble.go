package services

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
)

// Assembler writes downloaded pages into one PDF, a page per image with the
// page size equal to the image size in points.
type Assembler struct {
	Title string
}

func (a Assembler) Write(w io.Writer, pages []FetchedPage) error {
	if len(pages) == 0 {
		return ErrNothingDownloaded
	}

	first := pages[0].Size
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: float64(first.X), Ht: float64(first.Y)},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if a.Title != "" {
		pdf.SetTitle(a.Title, true)
	}

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for _, p := range pages {
		if p.Size.X <= 0 || p.Size.Y <= 0 {
			return fmt.Errorf("page %d has no size", p.Page)
		}
		pw, ph := float64(p.Size.X), float64(p.Size.Y)
		name := fmt.Sprintf("page-%d", p.Page)

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: pw, Ht: ph})
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.JPEG))
		pdf.ImageOptions(name, 0, 0, pw, ph, false, opts, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("page %d: %w", p.Page, err)
		}
	}
	return pdf.Output(w)
}

// WriteFile writes the PDF to path.
func (a Assembler) WriteFile(path string, pages []FetchedPage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.Write(f, pages); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
