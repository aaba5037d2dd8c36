package api

import (
	"errors"
	"net/http"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
)

func (h *Handler) listPoison(w http.ResponseWriter, r *http.Request) {
	opts := dlq.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
		Reason: delivery.FailureReason(r.URL.Query().Get("reason")),
	}

	from, ok, err := queryTime(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' time format (use RFC3339)")
		return
	}
	if ok {
		opts.From = &from
	}
	to, ok, err := queryTime(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' time format (use RFC3339)")
		return
	}
	if ok {
		opts.To = &to
	}

	entries, err := h.dlqSvc.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) getPoison(w http.ResponseWriter, r *http.Request) {
	psnID, err := id.ParsePoisonID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid poison ID")
		return
	}

	entry, err := h.dlqSvc.Get(r.Context(), psnID)
	if err != nil {
		if errors.Is(err, dlq.ErrNotFound) {
			writeError(w, http.StatusNotFound, "poison entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) replayPoison(w http.ResponseWriter, r *http.Request) {
	psnID, err := id.ParsePoisonID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid poison ID")
		return
	}

	if replayErr := h.dlqSvc.Replay(r.Context(), psnID); replayErr != nil {
		if errors.Is(replayErr, dlq.ErrNotFound) {
			writeError(w, http.StatusNotFound, "poison entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, replayErr.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) replayBulkPoison(w http.ResponseWriter, r *http.Request) {
	from, ok, err := queryTime(r, "from")
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid 'from' time format (use RFC3339)")
		return
	}
	to, ok, err := queryTime(r, "to")
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid 'to' time format (use RFC3339)")
		return
	}

	count, replayErr := h.dlqSvc.ReplayBulk(r.Context(), from, to)
	if replayErr != nil {
		writeError(w, http.StatusInternalServerError, replayErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"replayed": count})
}

func (h *Handler) purgePoison(w http.ResponseWriter, r *http.Request) {
	before, ok, err := queryTime(r, "before")
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid 'before' time format (use RFC3339)")
		return
	}

	count, err := h.dlqSvc.Purge(r.Context(), before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"purged": count})
}
