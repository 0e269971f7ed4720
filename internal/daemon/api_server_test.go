package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/xuri/excelize/v2"

	"ainotes/internal/api"
	"ainotes/internal/config"
	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/quality"
	"ainotes/internal/testsupport"
	"ainotes/internal/workflow"
)

type noopProcessor struct{}

func (noopProcessor) Run(context.Context, []byte, quality.Tier) (string, error) {
	return "", nil
}

type apiFixture struct {
	cfg    *config.Config
	store  *jobs.SQLiteStore
	server *httptest.Server
}

// newAPIFixture serves the API without starting workers, so jobs stay queued.
func newAPIFixture(t *testing.T, opts ...testsupport.ConfigOption) *apiFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, noopProcessor{}, logger)
	d, err := New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(d.api.handler())
	t.Cleanup(srv.Close)
	return &apiFixture{cfg: cfg, store: store, server: srv}
}

type uploadPart struct {
	fileName    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *uploadPart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+file.fileName+`"`)
		if file.contentType != "" {
			header.Set("Content-Type", file.contentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body *bytes.Buffer, contentType string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body.Bytes())
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := f.cfg.API.Token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *apiFixture) upload(t *testing.T, userID string, fields map[string]string, file *uploadPart) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields, file)
	return f.do(t, http.MethodPost, "/api/ainotes", userID, body, contentType)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}
	payload := decode[api.ErrorResponse](t, resp)
	if payload.Error != code {
		t.Fatalf("error = %q, want %q", payload.Error, code)
	}
}

func pdfPart() *uploadPart {
	return &uploadPart{fileName: "lecture.pdf", contentType: "application/pdf", data: testsupport.MinimalPDF}
}

func TestCreateJobQueuesUpload(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.upload(t, "user-1", map[string]string{"title": "Week 1", "quality": "detailed"}, pdfPart())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	created := decode[api.CreateJobResponse](t, resp)
	if created.Status != string(jobs.StatusQueued) {
		t.Fatalf("status = %q, want QUEUED", created.Status)
	}

	job, err := f.store.Get(context.Background(), created.ID, "user-1")
	if err != nil || job == nil {
		t.Fatalf("Get: %v %v", job, err)
	}
	if job.Title != "Week 1" || job.Quality != quality.Detailed {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.SourceFileName != "lecture.pdf" || job.SourceFileSize != int64(len(testsupport.MinimalPDF)) {
		t.Fatalf("unexpected source file: %q %d", job.SourceFileName, job.SourceFileSize)
	}
}

func TestCreateJobDefaultsQuality(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.upload(t, "user-1", nil, pdfPart())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	created := decode[api.CreateJobResponse](t, resp)
	job, err := f.store.Get(context.Background(), created.ID, "user-1")
	if err != nil || job == nil {
		t.Fatalf("Get: %v %v", job, err)
	}
	if job.Quality != quality.Balanced {
		t.Fatalf("quality = %q, want BALANCED", job.Quality)
	}
}

func TestCreateJobValidation(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("missing user", func(t *testing.T) {
		resp := f.upload(t, "", nil, pdfPart())
		expectError(t, resp, http.StatusUnauthorized, api.CodeInvalidSession)
	})
	t.Run("invalid quality", func(t *testing.T) {
		resp := f.upload(t, "user-1", map[string]string{"quality": "ultra"}, pdfPart())
		expectError(t, resp, http.StatusBadRequest, api.CodeInvalidQuality)
	})
	t.Run("quality checked before file", func(t *testing.T) {
		resp := f.upload(t, "user-1", map[string]string{"quality": "ultra"}, nil)
		expectError(t, resp, http.StatusBadRequest, api.CodeInvalidQuality)
	})
	t.Run("missing file", func(t *testing.T) {
		resp := f.upload(t, "user-1", map[string]string{"title": "x"}, nil)
		expectError(t, resp, http.StatusBadRequest, api.CodeMissingFile)
	})
	t.Run("wrong type", func(t *testing.T) {
		resp := f.upload(t, "user-1", nil, &uploadPart{fileName: "notes.txt", contentType: "text/plain", data: []byte("hello")})
		expectError(t, resp, http.StatusBadRequest, api.CodeInvalidFileType)
	})
	t.Run("octet stream with pdf extension", func(t *testing.T) {
		resp := f.upload(t, "user-1", nil, &uploadPart{fileName: "scan.PDF", contentType: "application/octet-stream", data: testsupport.MinimalPDF})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want 201", resp.StatusCode)
		}
	})
	t.Run("not multipart", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/ainotes", "user-1", bytes.NewBufferString("{}"), "application/json")
		expectError(t, resp, http.StatusBadRequest, api.CodeMissingFile)
	})
}

func TestCreateJobRejectsOversizedUpload(t *testing.T) {
	f := newAPIFixture(t)
	f.cfg.Notes.MaxUploadBytes = 64
	// the server captured the limit at construction; rebuild it
	logger := logging.NewNop()
	mgr := workflow.NewManager(f.cfg, f.store, noopProcessor{}, logger)
	d, err := New(f.cfg, f.store, logger, mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(d.api.handler())
	t.Cleanup(srv.Close)
	f.server = srv

	big := append(append([]byte(nil), testsupport.MinimalPDF...), bytes.Repeat([]byte("x"), 128)...)
	resp := f.upload(t, "user-1", nil, &uploadPart{fileName: "big.pdf", contentType: "application/pdf", data: big})
	expectError(t, resp, http.StatusRequestEntityTooLarge, api.CodeFileTooLarge)
}

func TestListAndGetAreScopedToUser(t *testing.T) {
	f := newAPIFixture(t)
	mine := testsupport.NewJob(t, f.store, "user-1", "a.pdf")
	testsupport.NewJob(t, f.store, "user-1", "b.pdf")
	other := testsupport.NewJob(t, f.store, "user-2", "c.pdf")

	resp := f.do(t, http.MethodGet, "/api/ainotes", "user-1", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	list := decode[api.JobListResponse](t, resp)
	if len(list.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(list.Items))
	}
	for _, item := range list.Items {
		if item.UserID != "user-1" {
			t.Fatalf("leaked job for %q", item.UserID)
		}
	}

	resp = f.do(t, http.MethodGet, "/api/ainotes/"+mine.ID, "user-1", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[api.JobResponse](t, resp)
	if got.Item.ID != mine.ID || got.Item.Status != string(jobs.StatusQueued) {
		t.Fatalf("unexpected item: %+v", got.Item)
	}
	if got.Item.Content != nil {
		t.Fatalf("expected null content for queued job")
	}

	resp = f.do(t, http.MethodGet, "/api/ainotes/"+other.ID, "user-1", nil, "")
	expectError(t, resp, http.StatusNotFound, api.CodeNotFound)

	resp = f.do(t, http.MethodGet, "/api/ainotes/not-a-uuid", "user-1", nil, "")
	expectError(t, resp, http.StatusNotFound, api.CodeNotFound)
}

func TestListEmptyReturnsArray(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/ainotes", "nobody", nil, "")
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["items"]) != "[]" {
		t.Fatalf("items = %s, want []", raw["items"])
	}
}

func TestDeleteJob(t *testing.T) {
	f := newAPIFixture(t)
	job := testsupport.NewJob(t, f.store, "user-1", "a.pdf")

	resp := f.do(t, http.MethodDelete, "/api/ainotes/"+job.ID, "user-2", nil, "")
	expectError(t, resp, http.StatusNotFound, api.CodeNotFound)

	resp = f.do(t, http.MethodDelete, "/api/ainotes/"+job.ID, "user-1", nil, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	got, err := f.store.Get(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatal("expected job removed")
	}

	resp = f.do(t, http.MethodDelete, "/api/ainotes/"+job.ID, "user-1", nil, "")
	expectError(t, resp, http.StatusNotFound, api.CodeNotFound)
}

func TestExportReturnsWorkbook(t *testing.T) {
	f := newAPIFixture(t)
	testsupport.NewJob(t, f.store, "user-1", "a.pdf")
	testsupport.NewJob(t, f.store, "user-1", "b.pdf")

	resp := f.do(t, http.MethodGet, "/api/ainotes/export", "user-1", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd == "" {
		t.Fatal("expected content disposition")
	}

	book, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer book.Close()
	rows, err := book.GetRows("Notes")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	testsupport.NewJob(t, f.store, "user-1", "a.pdf")

	resp := f.do(t, http.MethodGet, "/api/status", "", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	status := decode[api.DaemonStatus](t, resp)
	if !status.StoreHealthy {
		t.Fatalf("expected healthy store, got %q", status.StoreError)
	}
	if status.Workflow.JobStats[string(jobs.StatusQueued)] != 1 {
		t.Fatalf("job stats = %v", status.Workflow.JobStats)
	}
	if status.Model != f.cfg.LLM.Model {
		t.Fatalf("model = %q", status.Model)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	f := newAPIFixture(t, testsupport.WithToken("secret"))

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/ainotes", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set(userHeader, "user-1")
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	expectError(t, resp, http.StatusUnauthorized, api.CodeUnauthorized)

	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp2.Body.Close()
	expectError(t, resp2, http.StatusUnauthorized, api.CodeUnauthorized)

	ok := f.do(t, http.MethodGet, "/api/ainotes", "user-1", nil, "")
	if ok.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", ok.StatusCode)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/ainotes", "user-1", nil, "")
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}
