package main

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/pivolan/benford_analyzer/benford"
	"github.com/pivolan/benford_analyzer/domain/models"
	"github.com/pivolan/benford_analyzer/plot"
	"github.com/pivolan/benford_analyzer/report"
)

//go:embed templates/*.html
var templateFS embed.FS

const multipartMemory = 32 << 20

type uploadNotifier interface {
	NotifyUpload(ctx context.Context, chatID int64, analysis *Analysis)
}

type WebHandler struct {
	service        *DatasetService
	links          *UploadLinks
	notifier       uploadNotifier
	metrics        *Metrics
	logger         *slog.Logger
	pageSize       int
	maxUploadBytes int64
	templates      *template.Template
}

type WebOptions struct {
	PageSize       int
	MaxUploadBytes int64
}

func NewWebHandler(service *DatasetService, links *UploadLinks, notifier uploadNotifier, metrics *Metrics, logger *slog.Logger, opts WebOptions) (*WebHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	return &WebHandler{
		service:        service,
		links:          links,
		notifier:       notifier,
		metrics:        metrics,
		logger:         logger.With(slog.String("component", "web")),
		pageSize:       opts.PageSize,
		maxUploadBytes: opts.MaxUploadBytes,
		templates:      tmpl,
	}, nil
}

func (h *WebHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleUpload)
		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.handleDetail)
			r.Get("/rows", h.handleRows)
			r.Get("/summary.txt", h.handleSummaryText)
			r.Get("/summary.csv", h.handleSummaryCSV)
			r.Get("/chart", h.handleChartHTML)
			r.Get("/chart.png", h.handleChartPNG)
		})
	})
	return r
}

func (h *WebHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.InfoContext(r.Context(), "request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(started)))
	})
}

func (h *WebHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path))
	}
	if err := render.Render(w, r, apiErr); err != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func (h *WebHandler) page(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type indexPage struct {
	Token          string
	MaxUploadBytes int64
}

func (h *WebHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexPage{MaxUploadBytes: h.maxUploadBytes}
	if token := r.URL.Query().Get("token"); token != "" && h.links.Valid(token) {
		data.Token = token
	}
	h.page(w, r, "index.html", data)
}

// readUploadForm accepts multipart and urlencoded forms as well as JSON.
func (h *WebHandler) readUploadForm(w http.ResponseWriter, r *http.Request) (UploadForm, string, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	}

	var form UploadForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			UploadForm
			Token string `json:"token"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			return form, "", uploadReadError(err)
		}
		body.UploadForm.Source = sourceWeb
		return body.UploadForm, body.Token, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return form, "", uploadReadError(err)
	}
	form = UploadForm{
		Title:     strings.TrimSpace(r.FormValue("title")),
		DataRaw:   r.FormValue("data_raw"),
		HasHeader: r.FormValue("has_header"),
		Delimiter: r.FormValue("delimiter"),
		Source:    sourceWeb,
	}
	if v := strings.TrimSpace(r.FormValue("relevant_column")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return form, "", &ValidationError{Fields: []FieldError{{Field: "relevant_column", Message: "Enter a whole number."}}}
		}
		form.RelevantColumn = &n
	}

	file, header, err := r.FormFile("data_file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return form, "", uploadReadError(err)
		}
		if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
			return form, "", NewAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds the allowed size", nil)
		}
		form.Data, form.FileName = data, header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return form, "", uploadReadError(err)
	}
	return form, r.FormValue("token"), nil
}

func uploadReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds the allowed size", nil)
	}
	return NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

func (h *WebHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, token, err := h.readUploadForm(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	analysis, err := h.service.AnalyzeUpload(r.Context(), form)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if chatID, ok := h.links.Claim(token); ok && h.notifier != nil {
		go h.notifier.NotifyUpload(context.WithoutCancel(r.Context()), chatID, analysis)
	}

	if wantsHTML(r) {
		http.Redirect(w, r, "/datasets/"+analysis.Dataset.Slug, http.StatusSeeOther)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newDatasetResponse(analysis))
}

type DigitResponse struct {
	Digit              int    `json:"digit"`
	Occurrences        int    `json:"occurrences"`
	Percentage         string `json:"percentage"`
	ExpectedPercentage string `json:"expected_percentage"`
}

type DatasetResponse struct {
	Slug             string          `json:"slug"`
	Title            string          `json:"title"`
	Base             int             `json:"base"`
	SourceName       string          `json:"source_name,omitempty"`
	Columns          []string        `json:"columns,omitempty"`
	ColumnName       string          `json:"column_name"`
	CreatedAt        time.Time       `json:"created_at"`
	RowCount         int             `json:"row_count"`
	ErrorCount       int             `json:"error_count"`
	TotalOccurrences int             `json:"total_occurrences"`
	ChiSquare        float64         `json:"chi_square"`
	DegreesOfFreedom int             `json:"degrees_of_freedom"`
	PValue           *float64        `json:"p_value"`
	Threshold        float64         `json:"threshold"`
	Compliant        bool            `json:"compliant"`
	Verdict          string          `json:"verdict"`
	Digits           []DigitResponse `json:"digits"`
}

func newDatasetResponse(an *Analysis) DatasetResponse {
	a, ds := an.Analyzer, an.Dataset
	res := a.Test()
	resp := DatasetResponse{
		Slug:             ds.Slug,
		Title:            ds.DisplayTitle(),
		Base:             ds.Base,
		SourceName:       ds.SourceName,
		Columns:          ds.Columns,
		ColumnName:       ds.ColumnName(),
		CreatedAt:        ds.CreatedAt,
		RowCount:         ds.RowCount,
		ErrorCount:       ds.ErrorCount,
		TotalOccurrences: a.TotalOccurrences(),
		ChiSquare:        res.Statistic,
		DegreesOfFreedom: benford.DegreesOfFreedom(ds.Base),
		Threshold:        a.Config().Threshold,
		Compliant:        a.IsCompliant(),
		Verdict:          report.Verdict(a),
	}
	if p := res.PValue; !math.IsNaN(p) {
		resp.PValue = &p
	}
	places := a.Config().DecimalPlaces
	for _, row := range a.Summary() {
		resp.Digits = append(resp.Digits, DigitResponse{
			Digit:              row.Digit,
			Occurrences:        row.Occurrences,
			Percentage:         row.Percentage.StringFixed(places),
			ExpectedPercentage: row.ExpectedPercentage.StringFixed(benford.DefaultDecimalPlaces),
		})
	}
	return resp
}

func pageParam(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

type listPage struct {
	Items    []models.Dataset `json:"items"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	Total    int64            `json:"total"`
	Pages    int              `json:"pages"`
	HasPrev  bool             `json:"-"`
	HasNext  bool             `json:"-"`
	PrevPage int              `json:"-"`
	NextPage int              `json:"-"`
}

func pageCount(total int64, size int) int {
	return int((total + int64(size) - 1) / int64(size))
}

func (h *WebHandler) handleList(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r, "page", 1)
	items, total, err := h.service.List(r.Context(), page, h.pageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pages := pageCount(total, h.pageSize)
	data := listPage{
		Items: items, Page: page, Size: h.pageSize, Total: total, Pages: pages,
		HasPrev: page > 1, HasNext: page < pages, PrevPage: page - 1, NextPage: page + 1,
	}
	if wantsHTML(r) {
		h.page(w, r, "datasets.html", data)
		return
	}
	render.JSON(w, r, data)
}

type detailPage struct {
	Dataset      *models.Dataset
	Verdict      string
	Compliant    bool
	Summary      template.HTML
	ChiSquare    string
	PValue       string
	Occurrences  int
	ErrorPercent string
}

func (h *WebHandler) handleDetail(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Load(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !wantsHTML(r) {
		render.JSON(w, r, newDatasetResponse(analysis))
		return
	}

	a, ds := analysis.Analyzer, analysis.Dataset
	res := a.Test()
	data := detailPage{
		Dataset:     ds,
		Verdict:     report.Verdict(a),
		Compliant:   a.IsCompliant(),
		Summary:     template.HTML(report.SummaryHTML(a)),
		ChiSquare:   strconv.FormatFloat(res.Statistic, 'f', 2, 64),
		PValue:      "n/a",
		Occurrences: a.TotalOccurrences(),
	}
	if !math.IsNaN(res.PValue) {
		data.PValue = strconv.FormatFloat(res.PValue, 'g', 4, 64)
	}
	if ds.RowCount > 0 {
		data.ErrorPercent = benford.CalcPercentage(ds.ErrorCount, ds.RowCount, benford.DefaultDecimalPlaces).
			StringFixed(benford.DefaultDecimalPlaces)
	}
	h.page(w, r, "dataset.html", data)
}

type rowsPage struct {
	Slug  string              `json:"slug"`
	Items []models.DatasetRow `json:"items"`
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
	Total int64               `json:"total"`
}

func (h *WebHandler) handleRows(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r, "page", 1)
	size := pageParam(r, "size", 50)
	if size > 500 {
		size = 500
	}
	ds, rows, total, err := h.service.Rows(r.Context(), chi.URLParam(r, "slug"), page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, rowsPage{Slug: ds.Slug, Items: rows, Page: page, Size: size, Total: total})
}

func (h *WebHandler) handleSummaryText(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Load(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.PlainText(w, r, report.SummaryTable(analysis.Analyzer))
}

func (h *WebHandler) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Load(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+analysis.Dataset.Slug+`.csv"`)
	_, _ = io.WriteString(w, report.SummaryCSV(analysis.Analyzer))
}

func (h *WebHandler) handleChartHTML(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Load(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := plot.RenderDistributionHTML(&buf, plot.NewDigitDistribution(analysis.Analyzer)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *WebHandler) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Load(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	png, err := plot.DrawDigitBars(plot.NewDigitDistribution(analysis.Analyzer))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
