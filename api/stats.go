package api

import (
	"net/http"
)

type statsResponse struct {
	PendingMessages int64 `json:"pending_messages"`
	PoisonSize      int64 `json:"poison_size"`
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.queue.CountPending(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var poison int64
	if h.dlqSvc != nil {
		if poison, err = h.dlqSvc.Count(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, statsResponse{
		PendingMessages: pending,
		PoisonSize:      poison,
	})
}
