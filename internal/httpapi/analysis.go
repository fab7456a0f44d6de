package httpapi

import (
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/analysis"
	"github.com/feelsunbreeze/student_dashboard/internal/predictor"
	"github.com/feelsunbreeze/student_dashboard/internal/report"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
	"github.com/feelsunbreeze/student_dashboard/internal/sheet"
)

const uploadField = "files"

type studentRow struct {
	RegNo      string             `json:"reg_no"`
	Name       string             `json:"name"`
	Marks      map[string]float64 `json:"marks"`
	Total      float64            `json:"total"`
	Percentage float64            `json:"percentage"`
}

type analyzeResponse struct {
	Classes    []string                   `json:"classes"`
	Warnings   []string                   `json:"warnings"`
	Report     analysis.ClassReport       `json:"report"`
	Students   []studentRow               `json:"students"`
	Comparison []analysis.ClassComparison `json:"comparison"`
}

// readUploads parses the multipart body and returns every file sent under
// the "files" field, in order.
func (s *server) readUploads(w http.ResponseWriter, r *http.Request) ([]sheet.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, &requestError{Status: http.StatusBadRequest, Message: "invalid upload: " + err.Error()}
	}
	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, &requestError{Status: http.StatusBadRequest, Message: `no spreadsheets uploaded (use form field "files")`}
	}

	uploads := make([]sheet.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open upload %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read upload %s", fh.Filename)
		}
		uploads = append(uploads, sheet.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

// loadTable runs uploads through the workspace and picks the class to show:
// the "class" form value, or the first class when none was given.
func (s *server) loadTable(w http.ResponseWriter, r *http.Request) (*roster.Table, string, error) {
	uploads, err := s.readUploads(w, r)
	if err != nil {
		return nil, "", err
	}
	table, err := s.ws.Load(r.Context(), uploads)
	if err != nil {
		return nil, "", err
	}
	class := r.FormValue("class")
	if class == "" {
		if classes := table.Classes(); len(classes) > 0 {
			class = classes[0]
		}
	}
	return table, class, nil
}

func (s *server) analyze(w http.ResponseWriter, r *http.Request) {
	table, class, err := s.loadTable(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rep := analysis.Analyze(table, class, r.FormValue("q"))
	resp := analyzeResponse{
		Classes:    table.Classes(),
		Warnings:   make([]string, 0, len(table.Warnings)),
		Report:     rep,
		Students:   make([]studentRow, 0, len(rep.Records)),
		Comparison: analysis.CompareClasses(table),
	}
	for _, warn := range table.Warnings {
		resp.Warnings = append(resp.Warnings, warn.String())
	}
	for _, rec := range rep.Records {
		resp.Students = append(resp.Students, studentRow{
			RegNo:      rec.RegNo,
			Name:       rec.Name,
			Marks:      rec.Marks,
			Total:      rec.Total(),
			Percentage: rec.Percentage(),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) downloadReport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !slices.Contains(report.Kinds(), kind) {
		s.writeError(w, errors.Wrapf(report.ErrUnknownKind, "%q", kind))
		return
	}

	table, class, err := s.loadTable(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rep := analysis.Analyze(table, class, r.FormValue("q"))
	export, err := report.Build(kind, rep, analysis.CompareClasses(table))
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := export.Bytes()
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("writing report", "kind", kind, "err", err)
	}
}

type predictRequest struct {
	predictor.Input
	Model string `json:"model,omitempty"`
}

func (s *server) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Model == "" {
		res, err := s.ws.Predict(req.Input)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, res)
		return
	}

	model, ok := predictor.Lookup(req.Model)
	if !ok {
		s.writeError(w, &requestError{Status: http.StatusBadRequest, Message: "unknown model " + strconv.Quote(req.Model)})
		return
	}
	if err := req.Input.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := model.Predict(req.Input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type modelOptions struct {
	Name      string   `json:"name"`
	Scheme    string   `json:"scheme"`
	Support   []string `json:"parental_support"`
	Education []string `json:"parental_education"`
}

// predictOptions lists the choices each model accepts, default model first.
func (s *server) predictOptions(w http.ResponseWriter, r *http.Request) {
	opts := []modelOptions{describe(s.ws.Model)}
	for _, name := range predictor.Names() {
		if name == s.ws.Model.Name {
			continue
		}
		m, _ := predictor.Lookup(name)
		opts = append(opts, describe(m))
	}
	s.writeJSON(w, http.StatusOK, opts)
}

func describe(m predictor.Model) modelOptions {
	return modelOptions{
		Name:      m.Name,
		Scheme:    m.Scheme.Name,
		Support:   m.Support.Names(),
		Education: m.Education.Names(),
	}
}
