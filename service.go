package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"

	"github.com/pivolan/benford_analyzer/benford"
	"github.com/pivolan/benford_analyzer/domain/models"
	"github.com/pivolan/benford_analyzer/ingest"
	"github.com/pivolan/benford_analyzer/storage"
)

const (
	sourceWeb      = "web"
	sourceTelegram = "telegram"
	sourceChat     = "chat"
)

// UploadForm is one dataset submission, from the web form or the bot.
type UploadForm struct {
	Title          string `json:"title" validate:"max=50"`
	FileName       string `json:"file_name"`
	Data           []byte `json:"-"`
	DataRaw        string `json:"data_raw" validate:"required_without=Data"`
	RelevantColumn *int   `json:"relevant_column" validate:"omitempty,min=0"`
	HasHeader      string `json:"has_header" validate:"omitempty,oneof=auto yes no true false on off 1 0"`
	Delimiter      string `json:"delimiter"`
	Source         string `json:"-"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Analysis is a saved dataset with its recomputed analyzer.
type Analysis struct {
	Dataset  *models.Dataset
	Analyzer *benford.Analyzer
}

type DatasetService struct {
	store         storage.Store
	cfg           benford.Config
	opts          ingest.Options
	maxStoredRows int
	cache         *gocache.Cache
	metrics       *Metrics
	validate      *validator.Validate
	logger        *slog.Logger
}

type ServiceOptions struct {
	Benford       benford.Config
	Upload        ingest.Options
	MaxStoredRows int
	CacheTTL      time.Duration
}

func NewDatasetService(store storage.Store, opts ServiceOptions, metrics *Metrics, logger *slog.Logger) (*DatasetService, error) {
	if err := opts.Benford.Validate(); err != nil {
		return nil, err
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if len(opts.Upload.Allowed) == 0 {
		opts.Upload.Allowed = opts.Benford.AllowedDelimiters()
	}
	return &DatasetService{
		store:         store,
		cfg:           opts.Benford,
		opts:          opts.Upload,
		maxStoredRows: opts.MaxStoredRows,
		cache:         gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		metrics:       metrics,
		validate:      newValidator(),
		logger:        logger.With(slog.String("component", "dataset_service")),
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

func (s *DatasetService) validateForm(form UploadForm) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_without":
		return "Please provide either file or raw data."
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	}
	return fmt.Sprintf("Failed on %q.", fe.Tag())
}

// uploadOptions turns the form fields into ingest options.
func (s *DatasetService) uploadOptions(form UploadForm) (ingest.Options, error) {
	opts := s.opts
	opts.Column = ingest.AutoColumn
	if form.RelevantColumn != nil {
		opts.Column = *form.RelevantColumn
	}

	mode, err := ingest.ParseHeaderMode(form.HasHeader)
	if err != nil {
		return opts, &ValidationError{Fields: []FieldError{{Field: "has_header", Message: err.Error()}}}
	}
	opts.Header = mode

	delimiter, err := ingest.ParseDelimiter(form.Delimiter)
	if err != nil {
		return opts, err
	}
	opts.Delimiter = delimiter
	return opts, nil
}

// AnalyzeUpload ingests the form payload, analyzes it and saves the result.
func (s *DatasetService) AnalyzeUpload(ctx context.Context, form UploadForm) (*Analysis, error) {
	started := time.Now()
	source := form.Source
	if source == "" {
		source = sourceWeb
	}

	analysis, err := s.analyzeUpload(ctx, form)
	if err != nil {
		s.metrics.observeAnalysis(source, outcomeFailed, 0, 0, started)
		return nil, err
	}

	outcome := outcomeDeviant
	if analysis.Analyzer.IsCompliant() {
		outcome = outcomeCompliant
	}
	s.metrics.observeAnalysis(source, outcome, analysis.Dataset.RowCount, analysis.Dataset.ErrorCount, started)
	s.logger.InfoContext(ctx, "dataset analyzed",
		slog.String("slug", analysis.Dataset.Slug),
		slog.String("source", source),
		slog.Int("rows", analysis.Dataset.RowCount),
		slog.Int("error_rows", analysis.Dataset.ErrorCount),
		slog.Float64("chi_square", analysis.Analyzer.ChiSquare()),
		slog.Duration("took", time.Since(started)))
	return analysis, nil
}

func (s *DatasetService) analyzeUpload(ctx context.Context, form UploadForm) (*Analysis, error) {
	if err := s.validateForm(form); err != nil {
		return nil, err
	}
	opts, err := s.uploadOptions(form)
	if err != nil {
		return nil, err
	}

	name, payload := form.FileName, form.Data
	if len(payload) == 0 {
		name, payload = "", []byte(form.DataRaw)
	}
	src, err := ingest.Prepare(name, payload, opts)
	if err != nil {
		return nil, err
	}

	rec := ingest.NewRecordingReader(src.Rows, src.HasHeader, s.maxStoredRows)
	a, err := benford.FromRows(rec, src.Column, src.HasHeader, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", displayName(name), err)
	}

	ds := &models.Dataset{
		Title:          form.Title,
		Base:           s.cfg.Base,
		SourceName:     src.Name,
		RelevantColumn: src.Column,
		Columns:        src.Columns,
		HasHeader:      src.HasHeader,
		RowCount:       a.RowCount(),
		ErrorCount:     a.ErrorCount(),
	}
	if src.Delimiter != 0 {
		ds.Delimiter = string(src.Delimiter)
	}

	if err := s.store.SaveDataset(ctx, ds, digitRecords(a), rowRecords(a, rec.Rows(), src.Column)); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	a.SetTitle(ds.DisplayTitle())

	analysis := &Analysis{Dataset: ds, Analyzer: a}
	s.cache.SetDefault(ds.Slug, analysis)
	return analysis, nil
}

// HasNumbers reports whether AnalyzeText would find any number in text.
func (s *DatasetService) HasNumbers(text string) bool {
	return len(s.textRows(text)) > 0
}

func (s *DatasetService) textRows(text string) [][]string {
	if s.opts.NormalizeDigits {
		text = ingest.NormalizeDigits(text)
	}
	return ingest.SplitNumbers(text)
}

// AnalyzeText runs an unsaved analysis of the numbers found in free text.
func (s *DatasetService) AnalyzeText(text string) (*benford.Analyzer, error) {
	started := time.Now()
	a, err := benford.FromRows(benford.NewSliceReader(s.textRows(text)), 0, false, s.cfg)
	if err != nil {
		s.metrics.observeAnalysis(sourceChat, outcomeFailed, 0, 0, started)
		return nil, err
	}
	outcome := outcomeDeviant
	if a.IsCompliant() {
		outcome = outcomeCompliant
	}
	s.metrics.observeAnalysis(sourceChat, outcome, a.RowCount(), a.ErrorCount(), started)
	return a, nil
}

// Load rebuilds the analysis of a saved dataset from its digit counts.
func (s *DatasetService) Load(ctx context.Context, slug string) (*Analysis, error) {
	if cached, ok := s.cache.Get(slug); ok {
		s.metrics.observeCache(true)
		return cached.(*Analysis), nil
	}
	s.metrics.observeCache(false)

	ds, err := s.store.GetDataset(ctx, slug)
	if err != nil {
		return nil, err
	}
	digits, err := s.store.Occurrences(ctx, ds.ID)
	if err != nil {
		return nil, fmt.Errorf("load occurrences of %s: %w", slug, err)
	}

	counts := make([]benford.DigitCount, len(digits))
	for i, d := range digits {
		counts[i] = benford.DigitCount{Digit: d.Digit, Occurrences: d.Occurrences}
	}
	cfg := s.cfg
	cfg.Base = ds.Base
	a, err := benford.FromOccurrences(benford.OccurrencesFromCounts(counts), cfg)
	if err != nil {
		return nil, fmt.Errorf("rebuild analysis of %s: %w", slug, err)
	}
	a.SetTitle(ds.DisplayTitle())

	analysis := &Analysis{Dataset: ds, Analyzer: a}
	s.cache.SetDefault(slug, analysis)
	return analysis, nil
}

func (s *DatasetService) List(ctx context.Context, page, size int) ([]models.Dataset, int64, error) {
	return s.store.ListDatasets(ctx, page, size)
}

func (s *DatasetService) Rows(ctx context.Context, slug string, page, size int) (*models.Dataset, []models.DatasetRow, int64, error) {
	ds, err := s.store.GetDataset(ctx, slug)
	if err != nil {
		return nil, nil, 0, err
	}
	rows, total, err := s.store.ListRows(ctx, ds.ID, page, size)
	if err != nil {
		return nil, nil, 0, err
	}
	return ds, rows, total, nil
}

func digitRecords(a *benford.Analyzer) []models.SignificantDigit {
	exported := a.Export()
	out := make([]models.SignificantDigit, len(exported))
	for i, c := range exported {
		out[i] = models.SignificantDigit{Digit: c.Digit, Occurrences: c.Occurrences}
	}
	return out
}

func rowRecords(a *benford.Analyzer, rows []ingest.Row, column int) []models.DatasetRow {
	out := make([]models.DatasetRow, 0, len(rows))
	for _, r := range rows {
		rec := models.DatasetRow{Line: r.Index, Fields: r.Fields, HasError: a.IsErrorRow(r.Index)}
		switch {
		case r.Err != nil:
			rec.Error = truncate(r.Err.Error(), 255)
		case rec.HasError:
			rec.Error = fmt.Sprintf("no significant digit in column %d", column)
		}
		out = append(out, rec)
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func displayName(name string) string {
	if name == "" {
		return "raw data"
	}
	return name
}
