package api

import (
	"context"
	"net/http"
)

// SweepRequester queues an out-of-band sweep.
type SweepRequester interface {
	RequestSweep(ctx context.Context) bool
}

// SweepHandler handles manual sweep requests.
type SweepHandler struct {
	requester SweepRequester
}

// NewSweepHandler creates a new sweep handler.
func NewSweepHandler(requester SweepRequester) *SweepHandler {
	return &SweepHandler{requester: requester}
}

type sweepResponse struct {
	Queued bool `json:"queued"`
}

// HandleSweep handles POST /sweep. It answers 202 when a sweep was queued
// and 409 when one is already pending or the service is stopped.
func (h *SweepHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	if !h.requester.RequestSweep(r.Context()) {
		writeJSON(w, http.StatusConflict, sweepResponse{Queued: false})
		return
	}
	writeJSON(w, http.StatusAccepted, sweepResponse{Queued: true})
}
