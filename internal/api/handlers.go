package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/predict"
	"github.com/maskerade/metrolinkTimes/internal/snapshot"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// snap returns the current published snapshot, writing a 503 and
// returning ok=false if none has been published yet (spec.md §7: the
// API never blocks waiting for a first tick).
func (h *Handler) snap(w http.ResponseWriter) (*snapshot.Snapshot, bool) {
	s := h.publisher.Current()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot published yet", nil)
		return nil, false
	}
	return s, true
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"paths": []string{
			"/health",
			"/station/",
			"/station/{name}/",
			"/station/{name}/{platform}/",
			"/debug/",
			"/homeassistant/stations/",
			"/homeassistant/station/{name}/",
			"/homeassistant/station/{name}/outgoing/",
			"/homeassistant/station/{name}/incoming/",
		},
	})
}

// Health handles GET /health: 200 "ok" iff the current snapshot's
// localUpdateTime is within 30s, else 503 (spec.md §7).
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	s := h.publisher.Current()
	now := time.Now().UTC()
	if s.IsStale(now, h.staleAfter) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("stale"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StationList handles GET /station/.
func (h *Handler) StationList(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stations": s.Graph.Stations()})
}

type platformSummary struct {
	Platform string `json:"platform"`
	Message  string `json:"message,omitempty"`
	Link     string `json:"link"`
}

// StationSummary handles GET /station/{name}/.
func (h *Handler) StationSummary(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if !s.Graph.HasStation(name) {
		writeError(w, http.StatusNotFound, "unknown station", map[string]interface{}{"station": name})
		return
	}

	var platforms []platformSummary
	for _, nodeID := range s.Graph.PlatformsOf(name) {
		code, _ := s.Graph.PlatformCodeOf(nodeID)
		node := s.Store.Node(nodeID)
		message := ""
		if node != nil {
			message = node.Message()
		}
		platforms = append(platforms, platformSummary{
			Platform: code,
			Message:  message,
			Link:     "/station/" + name + "/" + code + "/",
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"station":   name,
		"platforms": platforms,
	})
}

type tramView struct {
	Dest      string `json:"dest"`
	Via       string `json:"via,omitempty"`
	Carriages string `json:"carriages"`
	Status    string `json:"status,omitempty"`
}

func viewOf(t *state.Tram) tramView {
	return tramView{Dest: t.Dest, Via: t.Via, Carriages: string(t.Carriages), Status: string(t.Status)}
}

type predictionView struct {
	tramView
	PredictedTime time.Time `json:"predictedTime"`
}

// PlatformDetail handles GET /station/{name}/{platform}/. predictions,
// message, meta and departed are independently-togglable query flags
// (spec.md §6).
func (h *Handler) PlatformDetail(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	platformCode := chi.URLParam(r, "platform")
	nodeID := network.NodeID(name + "_" + platformCode)
	if !s.Graph.Has(nodeID) {
		writeError(w, http.StatusNotFound, "unknown platform", map[string]interface{}{"station": name, "platform": platformCode})
		return
	}
	node := s.Store.Node(nodeID)

	resp := map[string]interface{}{
		"station":  name,
		"platform": platformCode,
		"here":     viewsOf(node.Here()),
		"starting": viewsOf(node.Starting()),
	}

	if truthy(r, "departed") {
		resp["departed"] = viewsOf(node.Departed())
	}
	if truthy(r, "message") {
		resp["message"] = node.Message()
	}
	if truthy(r, "predictions") {
		resp["predictions"] = predictionsFor(s, nodeID)
	}
	if truthy(r, "meta") {
		resp["meta"] = metaFor(s.Graph, s.Samples, nodeID)
	}

	writeJSON(w, http.StatusOK, resp)
}

func truthy(r *http.Request, key string) bool {
	v := r.URL.Query().Get(key)
	return v == "1" || v == "true"
}

func viewsOf(trams []*state.Tram) []tramView {
	out := make([]tramView, 0, len(trams))
	for _, t := range trams {
		out = append(out, viewOf(t))
	}
	return out
}

func predictionsFor(s *snapshot.Snapshot, node network.NodeID) []predictionView {
	gathered := predict.Gather(s.Store, node)
	out := make([]predictionView, 0, len(gathered))
	for _, g := range gathered {
		out = append(out, predictionView{
			tramView:      tramView{Dest: g.Dest, Via: g.Via, Carriages: string(g.Carriages)},
			PredictedTime: g.PredictedTime,
		})
	}
	return out
}

func metaFor(g *network.Graph, samples *learn.Store, node network.NodeID) map[string]interface{} {
	x, y, _ := g.MapPos(node)
	out := map[string]interface{}{"x": x, "y": y}

	transitByPred := make(map[string]float64)
	for _, pred := range g.Preds(node) {
		if avg, sampleCount := samples.AverageTransit(pred, node); sampleCount > 0 {
			transitByPred[string(pred)] = avg.Seconds()
		}
	}
	if len(transitByPred) > 0 {
		out["predecessorAvgTransitSeconds"] = transitByPred
	}
	if dwell, ok := samples.AverageDwell(node); ok {
		out["avgDwellSeconds"] = dwell.Seconds()
	}
	if jitter, ok := samples.DwellJitter(node); ok {
		out["dwellJitterSeconds"] = jitter.Seconds()
	}
	return out
}

// Debug handles GET /debug/: global trams-per-bucket listing plus
// missing-average data, and (with ?meta=true) per-node map metadata —
// restored from the original implementation's /debug/ endpoint
// (original_source/metrolinkTimes/api.py).
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}

	buckets := map[string]map[string][]tramView{
		"here":        {},
		"departed":    {},
		"approaching": {},
		"starting":    {},
	}
	for _, nodeID := range s.Graph.Nodes() {
		node := s.Store.Node(nodeID)
		if node == nil {
			continue
		}
		buckets["here"][string(nodeID)] = viewsOf(node.Here())
		buckets["departed"][string(nodeID)] = viewsOf(node.Departed())
		buckets["approaching"][string(nodeID)] = viewsOf(node.Approaching())
		buckets["starting"][string(nodeID)] = viewsOf(node.Starting())
	}

	missingDwell := s.Samples.NodesWithoutAverage(s.Graph)
	missingTransit := s.Samples.EdgesWithoutAverage(s.Graph)
	transitStrings := make([]string, 0, len(missingTransit))
	for _, e := range missingTransit {
		transitStrings = append(transitStrings, string(e.From)+"->"+string(e.To))
	}

	resp := map[string]interface{}{
		"buckets": buckets,
		"missingAverages": map[string]interface{}{
			"nodes": missingDwell,
			"edges": transitStrings,
		},
		"snapshotId":      s.ID,
		"localUpdateTime": s.LocalUpdateTime,
	}

	if truthy(r, "meta") {
		meta := make(map[string]interface{}, len(s.Graph.Nodes()))
		for _, nodeID := range s.Graph.Nodes() {
			meta[string(nodeID)] = metaFor(s.Graph, s.Samples, nodeID)
		}
		resp["meta"] = meta
	}

	writeJSON(w, http.StatusOK, resp)
}
