// Package scananalysis sends stored MRI scan images to the vision-text oracle
// and persists the structured result.
package scananalysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fransi777/quanta-medix-nexus/internal/domain/records"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/gemini"
)

var (
	ErrConfiguration    = errors.New("analysis oracle not configured")
	ErrScanNotFound     = errors.New("scan not found")
	ErrImageUnavailable = errors.New("scan image unavailable")
	ErrOracle           = errors.New("analysis oracle failed")
	ErrPersistence      = errors.New("analysis result could not be saved")
	ErrNoResult         = errors.New("scan has not been analyzed")
)

// Persisted defaults when a field could not be extracted.
const (
	NoTumorDetected   = "No tumor detected"
	NoAreasOfConcern  = "No specific areas of concern identified"
	NoRecommendations = "No specific recommendations provided"
)

// Oracle generates text from a prompt and image. *gemini.Client implements it.
type Oracle interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
}

type Options struct {
	// Force re-runs the analysis even when the scan already has a result.
	Force bool
}

// Analysis is a stored result together with the sections parsed from its
// oracle text.
type Analysis struct {
	Result          *records.AiResult `json:"result"`
	Sections        Sections          `json:"analysis"`
	FullAnalysis    string            `json:"fullAnalysis"`
	ConfidenceLevel string            `json:"confidenceLevel"`
	// Existing is true when a stored result was returned without calling
	// the oracle.
	Existing bool `json:"existing"`
}

type Option func(*Service)

func WithExtractor(e Extractor) Option { return func(s *Service) { s.extractor = e } }

func WithScorer(sc Scorer) Option { return func(s *Service) { s.scorer = sc } }

// WithTimeout bounds the oracle call.
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

type Service struct {
	store     records.Store
	oracle    Oracle
	images    ImageLoader
	extractor Extractor
	scorer    Scorer
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewService wires the proxy. A nil oracle means no credential is configured
// and every Analyze call fails with ErrConfiguration.
func NewService(store records.Store, oracle Oracle, images ImageLoader, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		oracle:    oracle,
		images:    images,
		extractor: NewLabeledSectionExtractor(),
		scorer:    KeywordScorer{},
		timeout:   30 * time.Second,
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Configured() bool { return s.oracle != nil }

// Analyze runs one analysis of a scan. A scan that is already processed
// returns its latest stored result unless opts.Force is set. Failures leave
// no partial writes: the result insert and the processed flag commit
// together.
func (s *Service) Analyze(ctx context.Context, scanID string, opts Options) (*Analysis, error) {
	if s.oracle == nil {
		return nil, ErrConfiguration
	}
	log := s.logger.With().Str("scan_id", scanID).Logger()

	scan, err := s.store.GetScan(ctx, scanID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load scan: %v", ErrPersistence, err)
	}

	if scan.AIProcessed && !opts.Force {
		existing, err := s.store.LatestResult(ctx, scanID)
		switch {
		case err == nil:
			log.Debug().Str("result_id", existing.ID).Msg("scan already analyzed")
			a := s.fromResult(existing)
			a.Existing = true
			return a, nil
		case !errors.Is(err, records.ErrNotFound):
			return nil, fmt.Errorf("%w: load result: %v", ErrPersistence, err)
		}
		log.Warn().Msg("scan flagged processed without a stored result, re-analyzing")
	}

	image, mime, err := s.images.Load(ctx, scan.ImageURL)
	if err != nil {
		log.Warn().Err(err).Msg("scan image load failed")
		return nil, err
	}

	octx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	started := time.Now()
	text, err := s.oracle.Generate(octx, gemini.Request{
		Prompt:   Prompt(scan.ScanType),
		Image:    image,
		MimeType: mime,
		Config:   generationConfig,
	})
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("oracle call failed")
		return nil, fmt.Errorf("%w: %v", ErrOracle, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrOracle)
	}

	sections := s.extractor.Extract(text)
	result := &records.AiResult{
		MriScanID:       scan.ID,
		PatientID:       scan.PatientID,
		Diagnosis:       firstOf(NoTumorDetected, sections.TumorDetails.TumorType, sections.Diagnosis),
		ConfidenceScore: clamp(s.scorer.Score(text)),
		AreasOfConcern:  firstOf(NoAreasOfConcern, sections.TumorDetails.Location, sections.Abnormalities),
		Recommendations: firstOf(NoRecommendations, sections.Recommendations),
		RawAnalysis:     text,
	}
	if err := s.store.SaveAnalysis(ctx, result); err != nil {
		log.Error().Err(err).Msg("saving analysis failed")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Info().
		Str("result_id", result.ID).
		Float64("confidence", result.ConfidenceScore).
		Dur("elapsed", time.Since(started)).
		Msg("scan analyzed")
	return &Analysis{
		Result:          result,
		Sections:        sections,
		FullAnalysis:    text,
		ConfidenceLevel: ConfidenceLevel(result.ConfidenceScore),
	}, nil
}

// Latest returns the newest stored analysis of a scan.
func (s *Service) Latest(ctx context.Context, scanID string) (*Analysis, error) {
	if _, err := s.store.GetScan(ctx, scanID); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("%w: load scan: %v", ErrPersistence, err)
	}
	r, err := s.store.LatestResult(ctx, scanID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load result: %v", ErrPersistence, err)
	}
	a := s.fromResult(r)
	a.Existing = true
	return a, nil
}

func (s *Service) fromResult(r *records.AiResult) *Analysis {
	a := &Analysis{
		Result:          r,
		FullAnalysis:    r.RawAnalysis,
		ConfidenceLevel: ConfidenceLevel(r.ConfidenceScore),
	}
	if r.RawAnalysis != "" {
		a.Sections = s.extractor.Extract(r.RawAnalysis)
	}
	return a
}

func firstOf(fallback string, candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return fallback
}
