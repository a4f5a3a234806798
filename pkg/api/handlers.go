package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freyr-data/tfrecord/pkg/codec"
	"github.com/freyr-data/tfrecord/pkg/dataset"
	"github.com/freyr-data/tfrecord/pkg/example"
)

// Server holds the API server state
type Server struct {
	dataset *dataset.Dataset
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server over an opened dataset
func NewServer(ds *dataset.Dataset, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		dataset: ds,
		config:  config,
		metrics: metrics,
	}
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleStats summarizes the dataset being served
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := StatsResponse{NumRecords: s.dataset.NumRecords()}

	seen := make(map[string]bool)
	for i := 0; i < s.dataset.NumRecords(); i++ {
		loc, err := s.dataset.Index(i)
		if err != nil {
			sendError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		stats.TotalBytes += loc.Length
		if !seen[loc.Path] {
			seen[loc.Path] = true
			stats.Files = append(stats.Files, loc.Path)
		}
	}
	stats.NumFiles = len(stats.Files)

	sendSuccess(w, stats)
}

// handleGetRecord serves one raw record payload
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	index, loc, payload, ok := s.fetchRecord(w, r)
	if !ok {
		return
	}

	sendSuccess(w, RecordResponse{
		Index:   index,
		Path:    loc.Path,
		Offset:  loc.Offset,
		Length:  loc.Length,
		Payload: payload,
	})
}

// handleGetFeatures serves the feature summary of one record
func (s *Server) handleGetFeatures(w http.ResponseWriter, r *http.Request) {
	index, _, payload, ok := s.fetchRecord(w, r)
	if !ok {
		return
	}

	e, err := example.Decode(payload)
	if err != nil {
		sendError(w, "record is not a valid example: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := FeaturesResponse{Index: index, Features: []FeatureSummary{}}
	e.Range(func(name string, v example.Value) bool {
		resp.Features = append(resp.Features, FeatureSummary{
			Name:   name,
			Kind:   example.KindOf(v),
			Length: example.LenOf(v),
		})
		return true
	})

	sendSuccess(w, resp)
}

// fetchRecord parses the index parameter and loads the payload, writing the
// error response itself when anything fails.
func (s *Server) fetchRecord(w http.ResponseWriter, r *http.Request) (int, dataset.RecordIndex, []byte, bool) {
	param := chi.URLParam(r, "index")
	index, err := strconv.Atoi(param)
	if err != nil {
		sendError(w, "invalid record index: "+param, http.StatusBadRequest)
		return 0, dataset.RecordIndex{}, nil, false
	}

	loc, err := s.dataset.Index(index)
	if err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return 0, dataset.RecordIndex{}, nil, false
	}

	payload, err := s.dataset.Get(r.Context(), index)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, codec.ErrPayloadChecksum) {
			s.metrics.RecordCorruption()
			status = http.StatusUnprocessableEntity
		}
		sendError(w, err.Error(), status)
		return 0, dataset.RecordIndex{}, nil, false
	}

	s.metrics.RecordServed(len(payload))
	return index, loc, payload, true
}

// sendSuccess sends a success JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}
