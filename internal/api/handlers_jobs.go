package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/0xsequence/sidekick-sub000/internal/service"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// jobView is the admin projection of a broker job.
type jobView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	Progress     int             `json:"progress"`
	State        types.JobState  `json:"state"`
	Timestamp    int64           `json:"timestamp"`
	ProcessedOn  int64           `json:"processedOn,omitempty"`
	FinishedOn   int64           `json:"finishedOn,omitempty"`
	FailedReason string          `json:"failedReason,omitempty"`
	Opts         interface{}     `json:"opts"`
}

func (s *Server) handleStartSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chainID := types.ChainID(vars["chainId"])
	contractAddress := vars["contractAddress"]

	var req service.StartRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.schedules.Start(r.Context(), chainID, contractAddress, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStopSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chainID := types.ChainID(vars["chainId"])
	contractAddress := vars["contractAddress"]

	jobID, err := s.schedules.Stop(r.Context(), chainID, contractAddress)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"jobId": jobID})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")

	jobs, err := s.schedules.List(r.Context(), statusFilter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, jobView{
			ID:           j.ID,
			Name:         j.Name,
			Data:         j.Data,
			Progress:     j.Progress,
			State:        j.State,
			Timestamp:    j.Timestamp,
			ProcessedOn:  j.ProcessedOn,
			FinishedOn:   j.FinishedOn,
			FailedReason: j.FailedReason,
			Opts:         j.Opts,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	if err := s.schedules.Clean(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Queue and schedule index cleaned"})
}
