package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivolan/benford_analyzer/benford"
	"github.com/pivolan/benford_analyzer/domain/models"
	"github.com/pivolan/benford_analyzer/storage"
)

const sampleData = "12\n15\n23\n31\n1\n"

type recordedNotice struct {
	chatID int64
	slug   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
	done    chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 8)}
}

func (n *fakeNotifier) NotifyUpload(_ context.Context, chatID int64, analysis *Analysis) {
	n.mu.Lock()
	n.notices = append(n.notices, recordedNotice{chatID: chatID, slug: analysis.Dataset.Slug})
	n.mu.Unlock()
	n.done <- struct{}{}
}

type webFixture struct {
	server   *httptest.Server
	service  *DatasetService
	links    *UploadLinks
	notifier *fakeNotifier
}

func newTestService(t *testing.T) *DatasetService {
	t.Helper()
	service, err := NewDatasetService(storage.NewMemoryStore(), ServiceOptions{
		Benford:       benford.DefaultConfig(),
		MaxStoredRows: 100,
		CacheTTL:      time.Minute,
	}, NewMetrics(), slogDiscard())
	require.NoError(t, err)
	return service
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	service := newTestService(t)
	links := NewUploadLinks("http://example.test", time.Hour)
	notifier := newFakeNotifier()
	h, err := NewWebHandler(service, links, notifier, service.metrics, slogDiscard(), WebOptions{
		PageSize:       2,
		MaxUploadBytes: 1 << 20,
	})
	require.NoError(t, err)

	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)
	return &webFixture{server: server, service: service, links: links, notifier: notifier}
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func (f *webFixture) postForm(t *testing.T, values url.Values, accept string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/datasets", strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", accept)
	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *webFixture) get(t *testing.T, path, accept string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUploadRawDataReturnsSummary(t *testing.T) {
	f := newWebFixture(t)

	resp := f.postForm(t, url.Values{"title": {"Invoices"}, "data_raw": {sampleData}}, "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[DatasetResponse](t, resp)
	assert.Len(t, body.Slug, 10)
	assert.Equal(t, "Invoices", body.Title)
	assert.Equal(t, 5, body.RowCount)
	assert.Equal(t, 0, body.ErrorCount)
	assert.Equal(t, 5, body.TotalOccurrences)
	assert.Equal(t, 9, body.DegreesOfFreedom)
	require.Len(t, body.Digits, 9)
	assert.Equal(t, DigitResponse{Digit: 1, Occurrences: 3, Percentage: "60.0", ExpectedPercentage: "30.1"}, body.Digits[0])
	assert.Equal(t, "20.0", body.Digits[1].Percentage)
	assert.Equal(t, "0.0", body.Digits[8].Percentage)
	assert.Nil(t, body.PValue, "no degrees of freedom are left for base 10")
}

func (f *webFixture) postFile(t *testing.T, fields map[string]string, name, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("data_file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/datasets", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUploadMultipartFile(t *testing.T) {
	f := newWebFixture(t)

	fields := map[string]string{"has_header": "yes", "relevant_column": "1"}
	resp := f.postFile(t, fields, "payments.csv", "name;amount\nann;120\nbob;0\ncid;7.5\n")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[DatasetResponse](t, resp)
	assert.Equal(t, models.UntitledDataset, body.Title)
	assert.Equal(t, "payments.csv", body.SourceName)
	assert.Equal(t, []string{"name", "amount"}, body.Columns)
	assert.Equal(t, "amount", body.ColumnName)
	assert.Equal(t, 3, body.RowCount)
	assert.Equal(t, 1, body.ErrorCount)
	assert.Equal(t, 1, body.Digits[0].Occurrences)
	assert.Equal(t, 1, body.Digits[6].Occurrences)

	rowsResp := f.get(t, "/datasets/"+body.Slug+"/rows", "")
	require.Equal(t, http.StatusOK, rowsResp.StatusCode)
	rows := decodeBody[rowsPage](t, rowsResp)
	assert.EqualValues(t, 3, rows.Total)
	require.Len(t, rows.Items, 3)
	assert.Equal(t, []string{"bob", "0"}, rows.Items[1].Fields)
	assert.True(t, rows.Items[1].HasError)
	assert.False(t, rows.Items[0].HasError)
}

func TestUploadUnreadableFile(t *testing.T) {
	f := newWebFixture(t)

	for _, name := range []string{"data.zip", "data.gz", "data.xlsx"} {
		t.Run(name, func(t *testing.T) {
			resp := f.postFile(t, nil, name, "this is not an archive")
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			body := decodeBody[APIError](t, resp)
			assert.Equal(t, "INVALID_UPLOAD", body.ErrorCode)
			assert.NotEmpty(t, body.Details)
		})
	}
}

func TestUploadValidation(t *testing.T) {
	f := newWebFixture(t)

	tests := []struct {
		name   string
		values url.Values
		field  string
	}{
		{"no data", url.Values{"title": {"x"}}, "data_raw"},
		{"long title", url.Values{"title": {strings.Repeat("t", 51)}, "data_raw": {sampleData}}, "title"},
		{"negative column", url.Values{"relevant_column": {"-1"}, "data_raw": {sampleData}}, "relevant_column"},
		{"column not a number", url.Values{"relevant_column": {"first"}, "data_raw": {sampleData}}, "relevant_column"},
		{"bad header mode", url.Values{"has_header": {"maybe"}, "data_raw": {sampleData}}, "has_header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.postForm(t, tt.values, "application/json")
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body struct {
				ErrorCode string       `json:"error_code"`
				Details   []FieldError `json:"details"`
				RequestID string       `json:"request_id"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "VALIDATION_FAILED", body.ErrorCode)
			assert.NotEmpty(t, body.RequestID)
			require.NotEmpty(t, body.Details)
			assert.Equal(t, tt.field, body.Details[0].Field)
		})
	}
}

func TestUploadRejectsUnsupportedDelimiter(t *testing.T) {
	f := newWebFixture(t)

	resp := f.postForm(t, url.Values{"delimiter": {"|"}, "data_raw": {"1|2\n"}}, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadFromBrowserRedirectsToDataset(t *testing.T) {
	f := newWebFixture(t)

	resp := f.postForm(t, url.Values{"data_raw": {sampleData}}, "text/html,application/xhtml+xml")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, "/datasets/"))

	page := f.get(t, location, "text/html")
	require.Equal(t, http.StatusOK, page.StatusCode)
	html, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(html), models.UntitledDataset)
	assert.Contains(t, string(html), "benford-summary")
	assert.Contains(t, string(html), "chart.png")
	assert.Contains(t, string(html), "Column: column_1")
}

func TestUploadWithTokenNotifiesChatOnce(t *testing.T) {
	f := newWebFixture(t)
	token, _ := f.links.Issue(42)

	resp := f.postForm(t, url.Values{"data_raw": {sampleData}, "token": {token}}, "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody[DatasetResponse](t, resp)

	select {
	case <-f.notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("chat was not notified")
	}
	f.notifier.mu.Lock()
	assert.Equal(t, []recordedNotice{{chatID: 42, slug: body.Slug}}, f.notifier.notices)
	f.notifier.mu.Unlock()
	assert.False(t, f.links.Valid(token))

	again := f.postForm(t, url.Values{"data_raw": {sampleData}, "token": {token}}, "application/json")
	require.Equal(t, http.StatusCreated, again.StatusCode)
	select {
	case <-f.notifier.done:
		t.Fatal("token was claimed twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIndexCarriesValidTokenOnly(t *testing.T) {
	f := newWebFixture(t)
	token, link := f.links.Issue(7)
	assert.Equal(t, "http://example.test/?token="+token, link)

	resp := f.get(t, "/?token="+token, "text/html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), `value="`+token+`"`)

	resp = f.get(t, "/?token=unknown", "text/html")
	html, _ = io.ReadAll(resp.Body)
	assert.NotContains(t, string(html), `name="token"`)
}

func TestListDatasetsPaginates(t *testing.T) {
	f := newWebFixture(t)
	for _, title := range []string{"first", "second", "third"} {
		resp := f.postForm(t, url.Values{"title": {title}, "data_raw": {sampleData}}, "application/json")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := f.get(t, "/datasets", "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[listPage](t, resp)
	assert.EqualValues(t, 3, list.Total)
	assert.Equal(t, 2, list.Pages)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "third", list.Items[0].Title)

	resp = f.get(t, "/datasets?page=2", "application/json")
	list = decodeBody[listPage](t, resp)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "first", list.Items[0].Title)

	resp = f.get(t, "/datasets", "text/html")
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "page 1 of 2")
}

func TestDatasetDownloads(t *testing.T) {
	f := newWebFixture(t)
	resp := f.postForm(t, url.Values{"title": {"Ledger"}, "data_raw": {sampleData}}, "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slug := decodeBody[DatasetResponse](t, resp).Slug

	txt := f.get(t, "/datasets/"+slug+"/summary.txt", "")
	require.Equal(t, http.StatusOK, txt.StatusCode)
	body, _ := io.ReadAll(txt.Body)
	assert.Contains(t, string(body), "Ledger")
	assert.Contains(t, string(body), "60.0")

	csvResp := f.get(t, "/datasets/"+slug+"/summary.csv", "")
	require.Equal(t, http.StatusOK, csvResp.StatusCode)
	assert.Contains(t, csvResp.Header.Get("Content-Disposition"), slug+".csv")
	body, _ = io.ReadAll(csvResp.Body)
	lines := strings.Split(string(body), "\n")
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "1,3,60.0,30.1", lines[1])

	png := f.get(t, "/datasets/"+slug+"/chart.png", "")
	require.Equal(t, http.StatusOK, png.StatusCode)
	assert.Equal(t, "image/png", png.Header.Get("Content-Type"))
	body, _ = io.ReadAll(png.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	chart := f.get(t, "/datasets/"+slug+"/chart", "")
	require.Equal(t, http.StatusOK, chart.StatusCode)
	body, _ = io.ReadAll(chart.Body)
	assert.Contains(t, string(body), "echarts")
}

func TestUnknownDatasetIsNotFound(t *testing.T) {
	f := newWebFixture(t)

	for _, path := range []string{"/datasets/nope", "/datasets/nope/rows", "/datasets/nope/chart.png"} {
		resp := f.get(t, path, "application/json")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newWebFixture(t)
	f.postForm(t, url.Values{"data_raw": {sampleData}}, "application/json")

	resp := f.get(t, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.get(t, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `benford_analyses_total{outcome=`)
	assert.Contains(t, string(body), "benford_rows_total")
}
