package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/contactcard/internal/core"
	"github.com/JonMunkholm/contactcard/internal/logging"
)

// defaultMaxUploadSize applies when Convert.MaxFileSize is unset (10MB).
const defaultMaxUploadSize = 10 << 20

// multipartOverhead is the allowance for form boundaries and other fields
// on top of the file size limit.
const multipartOverhead = 64 << 10

var errNoFile = errors.New("no file provided")

// handleHealth reports liveness and the conversion limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"conversions": s.service.LimiterStatus(),
	})
}

// handleFields lists the field catalog in display order.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Fields())
}

// handleSample serves the example CSV.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sample.csv"`)
	if err := core.WriteSample(w); err != nil {
		logging.FromContext(r.Context()).Error("write sample csv", "error", err)
	}
}

// handleInspect parses an uploaded CSV and reports how it would convert.
// Without a mapping field the suggested mapping is used.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	set, status, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, status)
		return
	}

	assignment, err := formAssignment(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	preview, err := s.service.Preview(r.Context(), set, assignment)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleConvert converts an uploaded CSV. Combined mode returns one
// text/vcard body; per-contact mode returns a zip with one .vcf per contact.
// Counts are reported in X-Contacts-Succeeded and X-Contacts-Failed. When no
// contact converts the response is 204 with the count headers only.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.service.AcquireSlot(ctx); err != nil {
		respondError(w, r, err, 0)
		return
	}
	defer s.service.ReleaseSlot()

	set, status, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, status)
		return
	}

	modeValue := r.FormValue("mode")
	if modeValue == "" {
		modeValue = s.cfg.Export.Mode
	}
	mode, err := core.ParseExportMode(modeValue)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	assignment, err := formAssignment(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if assignment == nil {
		assignment = core.SuggestMapping(set.Columns)
	}

	rendered, err := s.service.Render(ctx, set, assignment)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	h := w.Header()
	h.Set("X-Export-ID", rendered.ExportID)
	h.Set("X-Contacts-Succeeded", strconv.Itoa(rendered.Succeeded()))
	h.Set("X-Contacts-Failed", strconv.Itoa(rendered.Failed))

	if rendered.Succeeded() == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch mode {
	case core.ModeCombined:
		h.Set("Content-Type", "text/vcard; charset=utf-8")
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.CombinedFileName))
		w.Write([]byte(core.Combined(rendered.Cards)))

	default:
		body, err := zipCards(rendered.Cards)
		if err != nil {
			respondError(w, r, fmt.Errorf("build zip: %w", err), http.StatusInternalServerError)
			return
		}
		h.Set("Content-Type", "application/zip")
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "contacts-"+rendered.ExportID+".zip"))
		h.Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}
}

// readUpload parses the multipart "file" field into a RecordSet. On error
// it also returns the status to respond with, 0 meaning "derive from err".
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*core.RecordSet, int, error) {
	maxSize := s.cfg.Convert.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, 0, err
		}
		return nil, http.StatusBadRequest, fmt.Errorf("invalid form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, errNoFile
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large: %d bytes", header.Size)
	}

	set, err := s.service.Load(r.Context(), file)
	if err != nil {
		return nil, 0, err
	}
	return set, 0, nil
}

// formAssignment decodes the optional "mapping" form field, a JSON object of
// column name to field label. It returns nil when the field is absent.
func formAssignment(r *http.Request) (map[string]core.FieldTag, error) {
	raw := r.FormValue("mapping")
	if raw == "" {
		return nil, nil
	}

	var labels map[string]string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, &core.MappingError{Reason: "invalid mapping json", Err: err}
	}
	return core.ParseAssignment(labels)
}

// zipCards packs cards as one .vcf entry each. When two cards share a file
// name the later one wins, matching what per-contact export does on disk.
func zipCards(cards []core.Card) ([]byte, error) {
	last := make(map[string]int, len(cards))
	for i, c := range cards {
		last[c.FileName] = i
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, c := range cards {
		if last[c.FileName] != i {
			continue
		}
		f, err := zw.Create(c.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte(c.Text)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
