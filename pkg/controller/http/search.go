package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

type symptomRequest struct {
	Symptoms           string `json:"symptoms" masq:"secret"`
	Age                *int   `json:"age,omitempty"`
	Sex                string `json:"sex,omitempty"`
	Duration           string `json:"duration,omitempty"`
	ExistingConditions string `json:"existingConditions,omitempty"`
	Medications        string `json:"medications,omitempty"`
	AdditionalInfo     string `json:"additionalInfo,omitempty" masq:"secret"`
}

type medicineRequest struct {
	Mode              string `json:"mode"`
	Query             string `json:"query" masq:"secret"`
	AdditionalContext string `json:"additionalContext,omitempty" masq:"secret"`
}

type submitResponse struct {
	SearchID string `json:"searchId"`
	Status   string `json:"status"`
	Reused   *bool  `json:"reused,omitempty"`
}

type pendingResponse struct {
	SearchID string `json:"searchId"`
	Status   string `json:"status"`
}

type searchResponse struct {
	SearchID   string                `json:"searchId"`
	Kind       string                `json:"kind"`
	Mode       string                `json:"mode,omitempty"`
	Status     string                `json:"status"`
	Query      string                `json:"query"`
	Title      string                `json:"title"`
	Summary    string                `json:"summary"`
	Common     *model.MedicineCommon `json:"common,omitempty"`
	Analysis   *model.ModePayload    `json:"analysis,omitempty"`
	ReusedFrom string                `json:"reusedFrom,omitempty"`
	DurationMs int64                 `json:"durationMs"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

type searchListItem struct {
	SearchID  string    `json:"searchId"`
	Kind      string    `json:"kind"`
	Mode      string    `json:"mode,omitempty"`
	Status    string    `json:"status"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type searchListResponse struct {
	Searches []searchListItem `json:"searches"`
	Total    int              `json:"total"`
}

func toSearchResponse(rec *model.SearchRecord) searchResponse {
	return searchResponse{
		SearchID:   rec.ID.String(),
		Kind:       rec.Kind.String(),
		Mode:       rec.Mode.String(),
		Status:     rec.Status.String(),
		Query:      rec.Input.Query,
		Title:      rec.Title,
		Summary:    rec.Summary,
		Common:     rec.Common,
		Analysis:   rec.Analysis,
		ReusedFrom: rec.ReusedFrom.String(),
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return goerr.Wrap(usecase.ErrInvalidInput, "malformed request body", goerr.V("cause", err.Error()))
	}
	return nil
}

// ownerOf returns the owner set by authMiddleware
func ownerOf(r *http.Request) model.OwnerID {
	owner, _ := model.OwnerFromContext(r.Context())
	return owner
}

func (s *Server) submitSymptomsHandler(w http.ResponseWriter, r *http.Request) {
	var req symptomRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	input := usecase.SymptomInput{
		Symptoms:           req.Symptoms,
		Sex:                req.Sex,
		Duration:           req.Duration,
		ExistingConditions: req.ExistingConditions,
		Medications:        req.Medications,
		AdditionalInfo:     req.AdditionalInfo,
	}
	if req.Age != nil {
		input.Age = *req.Age
	}

	res, err := s.search.SubmitSymptoms(r.Context(), ownerOf(r), input)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, submitResponse{
		SearchID: res.ID.String(),
		Status:   res.Status.String(),
	})
}

func (s *Server) submitMedicineHandler(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.search.SubmitMedicine(r.Context(), ownerOf(r), usecase.MedicineInput{
		Mode:              req.Mode,
		Query:             req.Query,
		AdditionalContext: req.AdditionalContext,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	writeJSON(w, r, status, submitResponse{
		SearchID: res.ID.String(),
		Status:   res.Status.String(),
		Reused:   &res.Reused,
	})
}

func (s *Server) getSearchHandler(w http.ResponseWriter, r *http.Request) {
	id := model.SearchID(chi.URLParam(r, "searchId"))

	rec, err := s.search.Get(r.Context(), ownerOf(r), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if !rec.Status.IsTerminal() {
		writeJSON(w, r, http.StatusAccepted, pendingResponse{
			SearchID: rec.ID.String(),
			Status:   types.SearchStatusPending.String(),
		})
		return
	}
	writeJSON(w, r, http.StatusOK, toSearchResponse(rec))
}

func (s *Server) listSearchesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"))
	if err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid limit"))
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid offset"))
		return
	}

	records, total, err := s.search.List(r.Context(), ownerOf(r), q.Get("kind"), limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := searchListResponse{
		Searches: make([]searchListItem, len(records)),
		Total:    total,
	}
	for i, rec := range records {
		resp.Searches[i] = searchListItem{
			SearchID:  rec.ID.String(),
			Kind:      rec.Kind.String(),
			Mode:      rec.Mode.String(),
			Status:    rec.Status.String(),
			Title:     rec.Title,
			CreatedAt: rec.CreatedAt,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) deleteSearchHandler(w http.ResponseWriter, r *http.Request) {
	id := model.SearchID(chi.URLParam(r, "searchId"))

	if err := s.search.Delete(r.Context(), ownerOf(r), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, goerr.Wrap(usecase.ErrInvalidInput, "not an integer", goerr.V("value", v))
	}
	return n, nil
}
