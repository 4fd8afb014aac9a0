// Package api exposes the plant over HTTP and WebSocket: state snapshots,
// operator commands, trends, alarms, safety actions, and session reports.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/holla2040/plantsim/internal/alarm"
	"github.com/holla2040/plantsim/internal/command"
	"github.com/holla2040/plantsim/internal/plant"
	"github.com/holla2040/plantsim/internal/report"
)

// estopRequest is the JSON body for POST /api/estop.
type estopRequest struct {
	Reason    string `json:"reason"`
	Initiator string `json:"initiator"`
}

// trendResponse is the response for GET /api/trends/{name}.
type trendResponse struct {
	Name    string    `json:"name"`
	Divider int       `json:"divider"`
	Unit    string    `json:"unit"`
	Time    []float64 `json:"time"`
	Values  []float64 `json:"values"`
}

// Handler holds all dependencies for HTTP request handling.
type Handler struct {
	Plant *plant.Plant
	Hub   *Hub // nil means no WebSocket endpoint
}

// RegisterRoutes adds all API routes to the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.getState)
	mux.HandleFunc("POST /api/command", h.postCommand)
	mux.HandleFunc("GET /api/values", h.listValues)
	mux.HandleFunc("GET /api/trends/{name}", h.getTrend)
	mux.HandleFunc("GET /api/alarms", h.listAlarms)
	mux.HandleFunc("POST /api/alarms/acknowledge", h.acknowledgeAlarms)
	mux.HandleFunc("POST /api/estop", h.triggerEstop)
	mux.HandleFunc("POST /api/estop/reset", h.resetEstop)
	mux.HandleFunc("GET /api/report", h.exportReport)

	if h.Hub != nil {
		mux.HandleFunc("GET /ws", h.Hub.HandleWebSocket)
	}
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Plant.Snapshot())
}

func (h *Handler) postCommand(w http.ResponseWriter, r *http.Request) {
	var cmd command.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := cmd.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	env := command.NewEnvelope("http", cmd)

	if err := h.Plant.Submit(env.Command); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"id":     env.ID,
		"target": env.Command.Target,
	})
}

func (h *Handler) listValues(w http.ResponseWriter, r *http.Request) {
	rec := h.Plant.Recorder()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"values":   rec.Names(),
		"flags":    rec.FlagNames(),
		"dividers": []int{1, 2, 5, 10, 20, 50},
	})
}

func (h *Handler) getTrend(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	div := 1
	if d := r.URL.Query().Get("div"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid div parameter"})
			return
		}
		div = parsed
	}

	rec := h.Plant.Recorder()
	values, err := rec.Series(name, div)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	unit := r.URL.Query().Get("unit")
	var axis []float64
	switch unit {
	case "", "seconds":
		unit = "seconds"
		axis, err = rec.TimeAxis(div)
	case "minutes":
		axis, err = rec.TimeAxisMinutes(div)
	case "hours":
		axis, err = rec.TimeAxisHours(div)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit must be seconds, minutes, or hours"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// NaN is not valid JSON; trim the series to the written samples.
	values, axis = trimUnwritten(values, axis)

	writeJSON(w, http.StatusOK, trendResponse{
		Name:    name,
		Divider: div,
		Unit:    unit,
		Time:    axis,
		Values:  values,
	})
}

func (h *Handler) listAlarms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":         h.Plant.Alarms().Active(),
		"all":            h.Plant.Alarms().Alarms(),
		"unacknowledged": h.Plant.Alarms().Unacknowledged(),
	})
}

func (h *Handler) acknowledgeAlarms(w http.ResponseWriter, r *http.Request) {
	h.Plant.Alarms().Acknowledge()
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (h *Handler) triggerEstop(w http.ResponseWriter, r *http.Request) {
	var req estopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Reason == "" {
		req.Reason = "operator request"
	}

	h.Plant.Estop(req.Reason, req.Initiator)
	writeJSON(w, http.StatusOK, map[string]string{"status": "estop"})
}

func (h *Handler) resetEstop(w http.ResponseWriter, r *http.Request) {
	if h.Plant.Alarms().IsActive("emergencyStop", alarm.StateActive) && h.Plant.Alarms().Unacknowledged() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "acknowledge the e-stop alarm first"})
		return
	}
	h.Plant.ResetEstop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s.pdf", h.Plant.Config().Name))
	if err := report.WritePDF(w, h.Plant); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// trimUnwritten cuts both slices at the first NaN sample so the response is
// valid JSON and only covers recorded history.
func trimUnwritten(values, axis []float64) ([]float64, []float64) {
	n := len(values)
	for i, v := range values {
		if v != v {
			n = i
			break
		}
	}
	return values[:n], axis[:n]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
