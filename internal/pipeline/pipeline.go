// Package pipeline runs a technical-sheet request end to end: resolve the
// product URL, read the page, extract structured data with the LLM, grab an
// image and the PDF datasheets, and fill the DOCX template. User-facing
// messages are French; the API shell displays them verbatim.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/btp-tools/fichetech/internal/docgen"
	"github.com/btp-tools/fichetech/internal/llm"
	"github.com/btp-tools/fichetech/internal/models"
)

const (
	msgSuccess       = "Fiche technique générée avec succès."
	msgNoProductURL  = "Aucune URL produit trouvée."
	msgTitleRequired = "Le titre/nom du produit est obligatoire."

	outputDocName = "Fiche_Technique_Filled.docx"
	imagesDirName = "fiches_images"
	pdfsDirName   = "fiches_pdfs"
)

// Request is one technical-sheet job. ProductName is the only mandatory
// field; empty Domains fall back to the configured retailer list.
type Request struct {
	ProductName  string   `json:"product_name"`
	Brand        string   `json:"brand"`
	Reference    string   `json:"reference"`
	TemplatePath string   `json:"template_path,omitempty"`
	Domains      []string `json:"domains,omitempty"`
}

type URLResolver interface {
	Resolve(ctx context.Context, query string, domains []string) (string, []models.Attempt, error)
}

type ImageFetcher interface {
	FetchAndDownload(ctx context.Context, pageURL, outDir string, limit int) ([]string, error)
}

type PDFEngine interface {
	AcquirePDFs(ctx context.Context, productURL, downloadDir string) ([]string, error)
}

type DocRenderer interface {
	Render(templatePath, outPath string, ctx docgen.Context) error
}

type Orchestrator struct {
	resolver  URLResolver
	reader    PageReader
	extractor llm.Extractor
	images    ImageFetcher
	pdfs      PDFEngine
	renderer  DocRenderer

	defaultDomains  []string
	defaultTemplate string
	imageLimit      int
	logger          *slog.Logger
}

type OrchestratorOptions struct {
	Resolver  URLResolver
	Reader    PageReader
	Extractor llm.Extractor
	Images    ImageFetcher
	PDFs      PDFEngine
	Renderer  DocRenderer

	DefaultDomains  []string
	DefaultTemplate string
	ImageLimit      int
}

func NewOrchestrator(opts OrchestratorOptions, logger *slog.Logger) *Orchestrator {
	imageLimit := opts.ImageLimit
	if imageLimit <= 0 {
		imageLimit = 1
	}
	return &Orchestrator{
		resolver:        opts.Resolver,
		reader:          opts.Reader,
		extractor:       opts.Extractor,
		images:          opts.Images,
		pdfs:            opts.PDFs,
		renderer:        opts.Renderer,
		defaultDomains:  opts.DefaultDomains,
		defaultTemplate: opts.DefaultTemplate,
		imageLimit:      imageLimit,
		logger:          logger.With("component", "pipeline"),
	}
}

// Run executes one request and always returns a terminal result: every
// failure path, panics included, is converted into a status "error" result
// with the elapsed time populated.
func (o *Orchestrator) Run(ctx context.Context, req Request) (result models.RequestResult) {
	start := time.Now()
	result = models.RequestResult{
		Status:         models.StatusError,
		RequestID:      uuid.New().String(),
		DownloadedPDFs: []string{},
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panicked", "request_id", result.RequestID, "panic", r)
			result.Status = models.StatusError
			result.Message = fmt.Sprintf("Erreur interne : %v", r)
		}
		result.ExecutionTime = time.Since(start).Seconds()
	}()

	logger := o.logger.With("request_id", result.RequestID)

	if strings.TrimSpace(req.ProductName) == "" {
		result.Message = msgTitleRequired
		return result
	}

	query := buildQuery(req)
	domains := req.Domains
	if len(domains) == 0 {
		domains = o.defaultDomains
	}
	templatePath := req.TemplatePath
	if templatePath == "" {
		templatePath = o.defaultTemplate
	}

	logger.Info("request started", "query", query, "domains", domains)

	bestURL, attempts, err := o.resolver.Resolve(ctx, query, domains)
	result.TriedEndpoints = attempts
	if err != nil {
		result.Message = fmt.Sprintf("Erreur lors de la recherche d'URL : %v", err)
		return result
	}
	if bestURL == "" {
		result.Message = msgNoProductURL
		return result
	}
	result.BestURL = bestURL
	result.URLSource = hostOf(bestURL)

	baseDir := filepath.Join(filepath.Dir(templatePath), "data", result.RequestID)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		result.Message = fmt.Sprintf("Impossible de créer le répertoire de travail : %v", err)
		return result
	}

	pageText, err := o.reader.ReadText(ctx, bestURL)
	if err != nil {
		result.Message = fmt.Sprintf("Erreur lors de la lecture de la page produit : %v", err)
		return result
	}

	record, raw, err := o.extractor.Extract(ctx, pageText)
	if err != nil {
		if errors.Is(err, llm.ErrNoJSONBlock) {
			result.Message = fmt.Sprintf("Aucun bloc JSON trouvé dans la réponse LLM. Réponse brute: %s", raw)
		} else {
			result.Message = fmt.Sprintf("Erreur lors de l'extraction LLM : %v", err)
		}
		return result
	}
	result.ExtractedData = record

	images, err := o.images.FetchAndDownload(ctx, bestURL, filepath.Join(baseDir, imagesDirName), o.imageLimit)
	if err != nil {
		logger.Warn("image acquisition failed", "error", err)
	}
	if len(images) > 0 {
		result.ImagePath = images[0]
	}

	if _, err := os.Stat(templatePath); err != nil {
		result.Message = fmt.Sprintf("Modèle DOCX introuvable : %s", templatePath)
		return result
	}

	outPath := filepath.Join(baseDir, outputDocName)
	renderCtx := docgen.Context{
		Record:    record,
		Rows:      docgen.PairCharacteristics(record.Caracteristiques),
		ImagePath: result.ImagePath,
		Date:      time.Now(),
	}
	if err := o.renderer.Render(templatePath, outPath, renderCtx); err != nil {
		result.Message = fmt.Sprintf("Erreur lors de la génération du document : %v", err)
		return result
	}
	result.GeneratedDocx = outPath

	// The browser session runs on its own worker, joined immediately; a
	// worker panic resurfaces here so the top-level recover sees it.
	pdfDone := make(chan struct{})
	var pdfPaths []string
	var pdfErr error
	var pdfPanic any
	go func() {
		defer close(pdfDone)
		defer func() {
			if r := recover(); r != nil {
				pdfPanic = r
			}
		}()
		pdfPaths, pdfErr = o.pdfs.AcquirePDFs(ctx, bestURL, filepath.Join(baseDir, pdfsDirName))
	}()
	<-pdfDone
	if pdfPanic != nil {
		panic(pdfPanic)
	}
	if pdfPaths != nil {
		result.DownloadedPDFs = pdfPaths
	}

	result.Status = models.StatusSuccess
	result.Message = msgSuccess
	if pdfErr != nil {
		logger.Warn("pdf acquisition failed", "error", pdfErr)
		result.Message += fmt.Sprintf(" Erreur lors du téléchargement des PDFs: %v", pdfErr)
	}

	logger.Info("request finished", "status", result.Status, "docx", result.GeneratedDocx, "pdfs", len(pdfPaths))
	return result
}

// hostOf reduces a product URL to its host for the result's source field.
func hostOf(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return rawURL
}

// buildQuery joins the non-empty request fields into the search query.
func buildQuery(req Request) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{req.ProductName, req.Brand, req.Reference} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
