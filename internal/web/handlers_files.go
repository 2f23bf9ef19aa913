package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/fieldverify/internal/core"
	"github.com/JonMunkholm/fieldverify/internal/logging"
	"github.com/JonMunkholm/fieldverify/internal/web/templates"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// multipartMemory is held in memory; larger parts spill to temp files.
	multipartMemory = 10 << 20
)

// formFile returns the uploaded "file" part. The body is capped at the
// import size limit plus room for the multipart framing.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	limit := s.cfg.Import.MaxFileSize
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, nil, core.ErrFileTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, core.ErrNoFile
		}
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, core.ErrNoFile
	}
	return file, header, nil
}

// handleImport imports an uploaded CSV or XLSX file. HTMX requests get the
// summary fragment.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	result, err := s.service.ImportFile(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.ImportSummary(result).Render(r.Context(), w)
		return
	}
	writeJSON(w, result)
}

// handlePreview analyzes a file and returns what an import would do
// without storing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	preview, err := s.service.PreviewImport(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, preview)
}

// handleExportCSV downloads the filtered leads as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, false)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	text, err := s.service.ExportCSV(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.download(w, r, contentTypeCSV, core.ExportFileName("csv", s.now()), []byte(text))
}

// handleExportXLSX downloads the filtered leads as a workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, false)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data, err := s.service.ExportXLSX(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.download(w, r, contentTypeXLSX, core.ExportFileName("xlsx", s.now()), data)
}

// handleSample downloads the import template with one example lead.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, contentTypeCSV, core.SampleFileName, []byte(core.SampleCSV()))
}

func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	history := s.service.ImportHistory()
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.ImportHistory(history).Render(r.Context(), w)
		return
	}
	if history == nil {
		history = []core.ImportResult{}
	}
	writeJSON(w, history)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Warn("download interrupted", "file", name, "error", err)
	}
}
