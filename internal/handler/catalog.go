package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/promptfolio/api/internal/catalog"
)

type companyResponse struct {
	catalog.Company
	ShareToken string `json:"share_token,omitempty"`
	ShareURL   string `json:"share_url,omitempty"`
}

type jobResponse struct {
	catalog.Job
	ShareToken   string `json:"share_token,omitempty"`
	ShareURL     string `json:"share_url,omitempty"`
	CompanyToken string `json:"company_token,omitempty"`
}

type companyListResponse struct {
	Companies []companyResponse `json:"companies"`
	Total     int               `json:"total"`
}

type jobListResponse struct {
	Jobs  []jobResponse `json:"jobs"`
	Total int           `json:"total"`
}

func (h *Handler) toCompanyResponse(c catalog.Company) companyResponse {
	resp := companyResponse{Company: c}
	resp.ShareToken, resp.ShareURL = h.shareLink("companies", c.ID)
	return resp
}

func (h *Handler) toJobResponse(j catalog.Job) jobResponse {
	resp := jobResponse{Job: j}
	resp.ShareToken, resp.ShareURL = h.shareLink("jobs", j.ID)
	resp.CompanyToken = h.codec.Encode(j.CompanyID)
	return resp
}

// ListCompanies handles GET /api/companies.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	companies, total, err := h.catalog.ListCompanies(r.Context(), f)
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := companyListResponse{Companies: make([]companyResponse, 0, len(companies)), Total: total}
	for _, c := range companies {
		resp.Companies = append(resp.Companies, h.toCompanyResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCompany handles GET /api/companies/{token}.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := h.codec.Decode(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgInvalidLink)
		return
	}

	c, err := h.catalog.GetCompany(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrCompanyNotFound) {
			writeError(w, http.StatusNotFound, msgCompanyMissing)
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toCompanyResponse(*c))
}

// ListCompanyJobs handles GET /api/companies/{token}/jobs.
func (h *Handler) ListCompanyJobs(w http.ResponseWriter, r *http.Request) {
	id, err := h.codec.Decode(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgInvalidLink)
		return
	}

	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.catalog.GetCompany(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrCompanyNotFound) {
			writeError(w, http.StatusNotFound, msgCompanyMissing)
			return
		}
		internalError(w, r, err)
		return
	}

	h.writeJobs(w, r, catalog.JobFilter{Filter: f, CompanyID: id})
}

// ListJobs handles GET /api/jobs. The optional company parameter is a
// company share token.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jf := catalog.JobFilter{Filter: f}
	if token := r.URL.Query().Get("company"); token != "" {
		id, err := h.codec.Decode(token)
		if err != nil {
			writeError(w, http.StatusNotFound, msgInvalidLink)
			return
		}
		jf.CompanyID = id
	}

	h.writeJobs(w, r, jf)
}

func (h *Handler) writeJobs(w http.ResponseWriter, r *http.Request, f catalog.JobFilter) {
	jobs, total, err := h.catalog.ListJobs(r.Context(), f)
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := jobListResponse{Jobs: make([]jobResponse, 0, len(jobs)), Total: total}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, h.toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /api/jobs/{token}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := h.codec.Decode(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgInvalidLink)
		return
	}

	j, err := h.catalog.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, msgJobMissing)
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toJobResponse(*j))
}

// parseFilter reads q, limit and offset. Absent paging values take the
// catalog defaults; limits above the maximum are clamped.
func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{Query: q.Get("q"), Limit: catalog.DefaultPageSize}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("limit must be a positive integer")
		}
		f.Limit = min(n, catalog.MaxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}
