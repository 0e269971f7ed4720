package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ainotes/internal/api"
	"ainotes/internal/config"
	"ainotes/internal/logging"
	"ainotes/internal/quality"
	"ainotes/internal/services"
	"ainotes/internal/workflow"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// multipartOverhead allows for form boundaries and the non-file fields.
	multipartOverhead = 1 << 20
	maxMemory         = 8 << 20
)

type apiServer struct {
	bind      string
	token     string
	maxUpload int64
	logger    *slog.Logger
	daemon    *Daemon
	validate  *validator.Validate

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// createForm holds the non-file fields of an upload.
type createForm struct {
	Title    string `validate:"max=200"`
	FileName string `validate:"required,max=255"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	return &apiServer{
		bind:      strings.TrimSpace(cfg.API.Bind),
		token:     cfg.API.Token,
		maxUpload: cfg.Notes.MaxUploadBytes,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		daemon:    d,
		validate:  validator.New(),
	}
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ainotes", s.handleCreate)
	mux.HandleFunc("GET /api/ainotes", s.handleList)
	mux.HandleFunc("GET /api/ainotes/export", s.handleExport)
	mux.HandleFunc("GET /api/ainotes/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/ainotes/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return s.requestLogger(s.authMiddleware(s.token, mux))
}

func (s *apiServer) start() error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, api.CodeFileTooLarge, "")
		case errors.Is(err, http.ErrNotMultipart):
			s.writeError(w, http.StatusBadRequest, api.CodeMissingFile, "multipart/form-data body required")
		default:
			s.writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
		}
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	tier, ok := quality.Parse(r.FormValue("quality"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, api.CodeInvalidQuality, "")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, api.CodeMissingFile, "")
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		s.writeError(w, http.StatusRequestEntityTooLarge, api.CodeFileTooLarge, "")
		return
	}
	if !isPDFUpload(header) {
		s.writeError(w, http.StatusBadRequest, api.CodeInvalidFileType, "")
		return
	}

	form := createForm{
		Title:    strings.TrimSpace(r.FormValue("title")),
		FileName: filepath.Base(strings.TrimSpace(header.Filename)),
	}
	if err := s.validate.Struct(form); err != nil {
		s.writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, formatValidationErrors(err))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
		return
	}
	if int64(len(data)) > s.maxUpload {
		s.writeError(w, http.StatusRequestEntityTooLarge, api.CodeFileTooLarge, "")
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, api.CodeMissingFile, "file is empty")
		return
	}

	job, err := s.daemon.workflow.Submit(r.Context(), workflow.Upload{
		UserID:   userID,
		Title:    form.Title,
		Quality:  tier,
		FileName: form.FileName,
		Data:     data,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, api.CodeInvalidRequest, err.Error())
			return
		}
		s.internalError(w, r, "submit job", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.CreateJobResponse{ID: job.ID, Status: string(job.Status)})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.daemon.store.List(r.Context(), userID)
	if err != nil {
		s.internalError(w, r, "list jobs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Items: api.FromJobs(list)})
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.store.Get(r.Context(), id, userID)
	if err != nil {
		s.internalError(w, r, "get job", err)
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, api.CodeNotFound, "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Item: api.FromJob(job)})
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	deleted, err := s.daemon.workflow.Delete(r.Context(), id, userID)
	if err != nil {
		s.internalError(w, r, "delete job", err)
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, api.CodeNotFound, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.daemon.store.List(r.Context(), userID)
	if err != nil {
		s.internalError(w, r, "list jobs", err)
		return
	}
	data, err := s.daemon.exporter.JobsXLSX(r.Context(), list)
	if err != nil {
		s.internalError(w, r, "export jobs", err)
		return
	}
	filename := fmt.Sprintf("ainotes-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write export", logging.Error(err))
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StoreDriver:  status.StoreDriver,
		StoreHealthy: status.StoreErr == nil,
		LockFilePath: status.LockFilePath,
		InboxDir:     status.InboxDir,
		Model:        status.Model,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Checks:       api.FromChecks(status.Checks),
		Dependencies: api.FromDependencies(status.Dependencies),
	}
	if status.StoreErr != nil {
		payload.StoreError = status.StoreErr.Error()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// jobID extracts the path id. Malformed ids are reported as NOT_FOUND.
func (s *apiServer) jobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		s.writeError(w, http.StatusNotFound, api.CodeNotFound, "")
		return "", false
	}
	return strings.ToLower(id), true
}

func isPDFUpload(header *multipart.FileHeader) bool {
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if strings.Contains(contentType, "pdf") {
		return true
	}
	if contentType != "" && contentType != "application/octet-stream" {
		return false
	}
	return strings.EqualFold(filepath.Ext(header.Filename), ".pdf")
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		element := fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			element = fmt.Sprintf("%s (value: %s)", element, fe.Param())
		}
		parts = append(parts, element)
	}
	return strings.Join(parts, ", ")
}

func (s *apiServer) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logging.WithContext(r.Context(), s.logger).Error("request failed",
		logging.String("operation", op),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	)
	s.writeError(w, http.StatusInternalServerError, api.CodeInternal, "")
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: code, Message: message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *apiServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := services.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logging.WithContext(ctx, s.logger).Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)),
		)
	})
}
