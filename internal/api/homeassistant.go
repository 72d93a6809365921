package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/snapshot"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// haEntity is a Home-Assistant-style {state, attributes} document, the
// shape that original implementation's /homeassistant/ surface used
// (original_source/metrolinkTimes/api.py) and the distillation
// dropped. Restored here as a supplemental read-only view over the
// same snapshot (spec.md never names Home Assistant as a Non-goal).
type haEntity struct {
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

func haEntityForPlatform(s *snapshot.Snapshot, nodeID network.NodeID) haEntity {
	node := s.Store.Node(nodeID)
	here := node.Here()

	st := "empty"
	if len(here) > 0 {
		st = here[0].Dest
	}

	attrs := map[string]interface{}{
		"node":        string(nodeID),
		"here":        viewsOf(here),
		"departed":    viewsOf(node.Departed()),
		"approaching": viewsOf(node.Approaching()),
		"starting":    viewsOf(node.Starting()),
		"message":     node.Message(),
		"predictions": predictionsFor(s, nodeID),
	}
	return haEntity{State: st, Attributes: attrs}
}

// HomeAssistantStations handles GET /homeassistant/stations/.
func (h *Handler) HomeAssistantStations(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, haEntity{
		State:      "ok",
		Attributes: map[string]interface{}{"stations": s.Graph.Stations()},
	})
}

// HomeAssistantStation handles GET /homeassistant/station/{name}/: one
// entity per platform at the named station.
func (h *Handler) HomeAssistantStation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if !s.Graph.HasStation(name) {
		writeError(w, http.StatusNotFound, "unknown station", map[string]interface{}{"station": name})
		return
	}

	entities := make(map[string]haEntity)
	for _, nodeID := range s.Graph.PlatformsOf(name) {
		code, _ := s.Graph.PlatformCodeOf(nodeID)
		entities[code] = haEntityForPlatform(s, nodeID)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"station": name, "platforms": entities})
}

// HomeAssistantOutgoing handles GET /homeassistant/station/{name}/outgoing/:
// every tram due to depart from this station (Here + Starting, across
// all of the station's platforms), flattened into one entity.
func (h *Handler) HomeAssistantOutgoing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if !s.Graph.HasStation(name) {
		writeError(w, http.StatusNotFound, "unknown station", map[string]interface{}{"station": name})
		return
	}

	var trams []*state.Tram
	for _, nodeID := range s.Graph.PlatformsOf(name) {
		node := s.Store.Node(nodeID)
		trams = append(trams, node.Here()...)
		trams = append(trams, node.Starting()...)
	}
	writeJSON(w, http.StatusOK, haEntity{
		State:      "ok",
		Attributes: map[string]interface{}{"station": name, "trams": viewsOf(trams)},
	})
}

// HomeAssistantIncoming handles GET /homeassistant/station/{name}/incoming/:
// every tram with a predicted arrival at one of this station's
// platforms, with that predicted time. Trams with no prediction for
// these platforms are not listed.
func (h *Handler) HomeAssistantIncoming(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snap(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if !s.Graph.HasStation(name) {
		writeError(w, http.StatusNotFound, "unknown station", map[string]interface{}{"station": name})
		return
	}

	var incoming []predictionView
	for _, nodeID := range s.Graph.PlatformsOf(name) {
		incoming = append(incoming, predictionsFor(s, nodeID)...)
	}
	writeJSON(w, http.StatusOK, haEntity{
		State:      "ok",
		Attributes: map[string]interface{}{"station": name, "incoming": incoming},
	})
}
