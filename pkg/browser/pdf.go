package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"GrowthFlow/pkg/resume"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// PDFExporter prints HTML documents with a headless Chromium.
type PDFExporter struct {
	Headless bool
	log      *zap.Logger
}

// NewPDFExporter returns an exporter; the Playwright driver and Chromium
// must be installed (see EnsureDeps).
func NewPDFExporter(headless bool, log *zap.Logger) *PDFExporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFExporter{Headless: headless, log: log}
}

// pdfOptions maps a page description onto Playwright's print options.
func pdfOptions(cfg resume.PDFConfig, path string) playwright.PagePdfOptions {
	margin := strconv.FormatFloat(cfg.MarginMM, 'g', -1, 64) + "mm"
	format := cfg.Format
	if format == "" {
		format = "A4"
	}
	return playwright.PagePdfOptions{
		Path:            playwright.String(path),
		Format:          playwright.String(format),
		Landscape:       playwright.Bool(cfg.Landscape),
		PrintBackground: playwright.Bool(cfg.PrintBackground),
		Margin: &playwright.Margin{
			Top:    playwright.String(margin),
			Right:  playwright.String(margin),
			Bottom: playwright.String(margin),
			Left:   playwright.String(margin),
		},
	}
}

// Export renders htmlDoc and writes it to path as PDF. The parent directory
// is created when missing.
func (e *PDFExporter) Export(ctx context.Context, htmlDoc, path string, cfg resume.PDFConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	pw, err := playwright.Run(&playwright.RunOptions{Verbose: false})
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	defer func() {
		if err := pw.Stop(); err != nil {
			e.log.Warn("playwright stop failed", zap.Error(err))
		}
	}()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.Headless),
	})
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	// The template is self-contained; a cancelled ctx only stops us between steps.
	if err := page.SetContent(htmlDoc, playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := page.PDF(pdfOptions(cfg, path)); err != nil {
		return fmt.Errorf("print pdf: %w", err)
	}
	e.log.Info("pdf exported", zap.String("path", path))
	return nil
}

// ExportResume renders r and writes CV_<name>_<title>.pdf into dir.
func (e *PDFExporter) ExportResume(ctx context.Context, r *resume.Resume, dir string) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	doc, err := resume.RenderHTML(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, r.PDFFilename())
	if err := e.Export(ctx, doc, path, resume.DefaultPDFConfig()); err != nil {
		return "", err
	}
	return path, nil
}
