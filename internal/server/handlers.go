package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"snapshotfetcher/internal/table"
	"snapshotfetcher/internal/tickers"
)

// UploadResponse is returned after a ticker list has been accepted.
type UploadResponse struct {
	ID      string   `json:"id"`
	Source  string   `json:"source"`
	Tickers []string `json:"tickers"`
}

// RunResponse is returned when a batch has been triggered.
type RunResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleUpload accepts a multipart "file" (csv or xlsx) or a plain
// "tickers" form field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	list, source, err := s.readTickers(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		case tickers.IsInputError(err):
			s.errorResponse(w, http.StatusBadRequest, err.Error())
		default:
			s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		}
		return
	}

	if len(list) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "no tickers found")
		return
	}

	job := newJob(source, list)
	s.jobs.add(job)
	s.logger.Info("tickers uploaded", "job", job.ID.String(), "source", source, "count", len(list))

	s.jsonResponse(w, http.StatusCreated, UploadResponse{
		ID:      job.ID.String(),
		Source:  source,
		Tickers: list,
	})
}

func (s *Server) readTickers(r *http.Request) ([]string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return nil, "", err
		}
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			list, err := tickers.FromFile(header.Filename, file)
			return list, header.Filename, err
		case !errors.Is(err, http.ErrMissingFile):
			return nil, "", err
		}
	}

	text := r.FormValue("tickers")
	if strings.TrimSpace(text) == "" {
		return nil, "", errors.New("provide a \"file\" upload or a \"tickers\" field")
	}
	return tickers.FromText(text), "text", nil
}

// handleRun starts the batch for an uploaded job in the background.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if !job.start() {
		s.errorResponse(w, http.StatusConflict, "job already started")
		return
	}

	s.runJob(job)

	s.jsonResponse(w, http.StatusAccepted, RunResponse{
		ID:      job.ID.String(),
		Status:  string(JobRunning),
		Message: fmt.Sprintf("fetching %d tickers", len(job.Tickers)),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, job.Status())
}

// handleDownload streams the finished table as xlsx (default) or csv.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}

	format, err := table.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result := job.Result()
	if result == nil {
		s.errorResponse(w, http.StatusConflict, fmt.Sprintf("job is %s", job.Status().State))
		return
	}

	data, err := result.Encode(format, s.sheetName)
	if err != nil {
		s.logger.Error("failed to encode result", "job", job.ID.String(), "format", format, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to build download")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write download", "job", job.ID.String(), "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Job, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job ID")
		return nil, false
	}

	job, ok := s.jobs.get(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}
