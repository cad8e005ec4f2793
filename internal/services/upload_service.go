// Package services – UploadPipeline
//
// Single-slot report upload: at most one file is staged at a time, however
// it arrived. Processing issues one extraction request with progress events,
// retries transport failures a bounded number of times, and treats user
// cancellation as terminal. The attached narrative analysis is best-effort;
// the structured extraction and its quality score stand on their own.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthsphere/go-health-backend/internal/config"
	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/llm"
	"github.com/healthsphere/go-health-backend/internal/ocr"
	"github.com/healthsphere/go-health-backend/internal/repo"
)

// UploadStatus is the pipeline lifecycle position.
type UploadStatus string

// Pipeline statuses. Canceled is distinct from Failed: a canceled attempt is
// never retried and is not presented as a failure.
const (
	UploadIdle      UploadStatus = "idle"
	UploadUploading UploadStatus = "uploading"
	UploadAnalyzing UploadStatus = "analyzing"
	UploadComplete  UploadStatus = "complete"
	UploadFailed    UploadStatus = "failed"
	UploadCanceled  UploadStatus = "canceled"
)

// acceptedMIME is the fixed allowlist of report file types.
var acceptedMIME = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/tiff":      {},
	"image/bmp":       {},
}

// StagedFile is one file offered to the pipeline.
type StagedFile struct {
	Name string
	MIME string
	Data []byte
}

// Extractor is the extraction-service contract the pipeline consumes.
// *ocr.Client satisfies it.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte, progress func(int)) (*ocr.Result, error)
}

// UploadService creates report-upload pipelines.
type UploadService struct {
	DB        *gorm.DB
	Narrative Narrative
	Extractor Extractor

	MaxBytes   int64
	MaxRetries int
	RetryDelay time.Duration
}

// NewUploadService constructs an UploadService from configuration.
func NewUploadService(db *gorm.DB, n Narrative, ex Extractor, cfg config.UploadConfig) *UploadService {
	return &UploadService{
		DB:         db,
		Narrative:  n,
		Extractor:  ex,
		MaxBytes:   cfg.MaxBytes,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
}

// UploadResult is everything one completed pipeline run produced.
type UploadResult struct {
	Upload     *domain.Upload
	Record     *domain.ReportAnalysis
	Extraction *ocr.Result
	Quality    ExtractionQuality

	// Narrative is nil when the narrative service was unavailable; the
	// extraction and its quality score are still valid.
	Narrative *llm.ReportAnalysis
}

// UploadPipeline is one user's report-upload slot. All exported methods are
// safe for concurrent use.
type UploadPipeline struct {
	svc      *UploadService
	identity string

	mu         sync.Mutex
	status     UploadStatus
	staged     *StagedFile
	progress   int
	retryCount int
	cancel     context.CancelFunc
	onProgress func(int)
	result     *UploadResult
}

// NewPipeline returns an empty pipeline for identity.
func (s *UploadService) NewPipeline(identity string) *UploadPipeline {
	return &UploadPipeline{svc: s, identity: identity, status: UploadIdle}
}

// OnProgress registers the progress observer. The observer receives values
// in [0,100]; 100 is delivered only after the server confirmed completion.
func (p *UploadPipeline) OnProgress(fn func(int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProgress = fn
}

// Stage validates and stages exactly one file. Every arrival path funnels
// through here, so drag-drop, browse and paste share one set of rules:
// one file at a time, accepted MIME type, size under the ceiling, and an
// empty slot.
func (p *UploadPipeline) Stage(files ...StagedFile) error {
	if len(files) == 0 {
		return ErrNoFileStaged
	}
	if len(files) > 1 {
		return ErrMultipleFiles
	}
	f := files[0]
	if _, ok := acceptedMIME[f.MIME]; !ok {
		return ErrUnsupportedFile
	}
	if int64(len(f.Data)) > p.svc.MaxBytes {
		return ErrFileTooLarge
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.staged != nil {
		return ErrSlotOccupied
	}
	p.staged = &f
	p.status = UploadIdle
	p.progress = 0
	p.retryCount = 0
	p.result = nil
	return nil
}

// Clear discards the staged file and resets the pipeline. An in-flight
// attempt is canceled first.
func (p *UploadPipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.staged = nil
	p.status = UploadIdle
	p.progress = 0
	p.retryCount = 0
	p.result = nil
}

// Cancel aborts the in-flight attempt. Canceling takes precedence over
// retry: the retry counter is cleared and the pipeline lands in Canceled,
// not Failed. Canceling an idle pipeline is a no-op.
func (p *UploadPipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.status = UploadCanceled
	p.retryCount = 0
}

// Status returns the pipeline status, progress percentage, and retry count.
func (p *UploadPipeline) Status() (UploadStatus, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.progress, p.retryCount
}

// Result returns the completed run's output, or nil.
func (p *UploadPipeline) Result() *UploadResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Process runs the staged file through extraction, quality assessment,
// narrative analysis and persistence. Transport failures are retried up to
// the configured maximum with a fixed delay between attempts; cancellation
// stops everything immediately.
func (p *UploadPipeline) Process(ctx context.Context) (*UploadResult, error) {
	tr := otel.Tracer("services/UploadPipeline")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(attribute.String("user.id", p.identity)),
	)
	defer span.End()

	p.mu.Lock()
	if p.staged == nil {
		p.mu.Unlock()
		return nil, ErrNoFileStaged
	}
	if p.status == UploadUploading || p.status == UploadAnalyzing {
		p.mu.Unlock()
		return nil, ErrNotReady
	}
	file := *p.staged
	cctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.status = UploadUploading
	p.progress = 0
	p.retryCount = 0
	p.mu.Unlock()
	defer cancel()

	for {
		result, err := p.attempt(cctx, file)
		if err == nil {
			p.mu.Lock()
			p.status = UploadComplete
			p.progress = 100
			p.cancel = nil
			p.result = result
			fn := p.onProgress
			p.mu.Unlock()
			if fn != nil {
				fn(100)
			}
			return result, nil
		}

		if cctx.Err() != nil || errors.Is(err, context.Canceled) {
			p.mu.Lock()
			p.status = UploadCanceled
			p.cancel = nil
			p.retryCount = 0
			p.mu.Unlock()
			return nil, context.Canceled
		}

		// Only transport failures are retried. Anything else (parse,
		// persistence) fails the run outright.
		retryable := errors.Is(err, ocr.ErrUnavailable)

		p.mu.Lock()
		if !retryable || p.retryCount >= p.svc.MaxRetries {
			p.status = UploadFailed
			p.cancel = nil
			p.mu.Unlock()
			return nil, err
		}
		p.retryCount++
		attempt := p.retryCount
		p.progress = 0
		p.mu.Unlock()

		log.Warn().Err(err).
			Int("attempt", attempt).
			Str("user_id", p.identity).
			Msg("report extraction failed, retrying")

		select {
		case <-cctx.Done():
			p.mu.Lock()
			p.status = UploadCanceled
			p.cancel = nil
			p.retryCount = 0
			p.mu.Unlock()
			return nil, context.Canceled
		case <-time.After(p.svc.RetryDelay):
		}

		p.mu.Lock()
		p.status = UploadUploading
		p.mu.Unlock()
	}
}

// attempt is one full extraction/analysis/persistence pass.
func (p *UploadPipeline) attempt(ctx context.Context, file StagedFile) (*UploadResult, error) {
	extraction, err := p.svc.Extractor.Extract(ctx, file.Name, file.Data, p.setProgress)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.status = UploadAnalyzing
	p.mu.Unlock()

	quality := AssessExtraction(extraction)

	// The narrative analysis is optional: unavailability degrades, any
	// other error (including cancellation) aborts the attempt.
	narrative, err := p.svc.Narrative.AnalyzeReport(ctx, extraction.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, llm.ErrUnavailable) && !errors.Is(err, llm.ErrBadPayload) {
			return nil, err
		}
		log.Info().Err(err).Msg("report narrative omitted")
		narrative = nil
	}

	upload, record, err := p.persist(ctx, file, extraction, narrative)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		Upload:     upload,
		Record:     record,
		Extraction: extraction,
		Quality:    quality,
		Narrative:  narrative,
	}, nil
}

// persist stores the upload row and its analysis row.
func (p *UploadPipeline) persist(ctx context.Context, file StagedFile, extraction *ocr.Result, narrative *llm.ReportAnalysis) (*domain.Upload, *domain.ReportAnalysis, error) {
	upload, err := repo.CreateUpload(ctx, p.svc.DB, p.identity, file.Name)
	if err != nil {
		return nil, nil, err
	}

	record := &domain.ReportAnalysis{
		UserID:   p.identity,
		UploadID: upload.ID,
		OCRText:  extraction.Text,
		Urgency:  3,
	}
	if narrative != nil {
		record.Urgency = narrative.Urgency
		if b, err := json.Marshal(narrative); err == nil {
			record.Analysis = string(b)
		}
		if b, err := json.Marshal(narrative.Findings); err == nil {
			record.Findings = string(b)
		}
	}
	if _, err := repo.CreateReportAnalysis(ctx, p.svc.DB, record); err != nil {
		return nil, nil, err
	}
	return upload, record, nil
}

// setProgress applies an extraction progress event. Values cap at 99; only
// confirmed completion may report 100.
func (p *UploadPipeline) setProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	p.mu.Lock()
	if pct < p.progress {
		p.mu.Unlock()
		return
	}
	p.progress = pct
	fn := p.onProgress
	p.mu.Unlock()
	if fn != nil {
		fn(pct)
	}
}
