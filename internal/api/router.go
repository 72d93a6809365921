// Package api implements the read-only HTTP surface (component K) over
// a snapshot.Publisher. Every handler reads exclusively from
// snapshot.Publisher.Current() — none ever touches the feed client,
// the locator or the predictor directly (spec.md §5).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/maskerade/metrolinkTimes/internal/snapshot"
)

// Handler wraps a snapshot.Publisher with the dependencies every route
// needs: staleness budget for /health, and the CORS origin to allow.
type Handler struct {
	publisher   *snapshot.Publisher
	staleAfter  time.Duration
	corsOrigins []string
}

// NewHandler creates a Handler. staleAfterSeconds is the /health
// freshness budget (spec.md §7: 30s).
func NewHandler(publisher *snapshot.Publisher, staleAfterSeconds int, corsOrigin string) *Handler {
	return &Handler{
		publisher:   publisher,
		staleAfter:  time.Duration(staleAfterSeconds) * time.Second,
		corsOrigins: []string{corsOrigin},
	}
}

// Router builds the full chi.Router for this service, matching the
// teacher's cors.Handler wiring in apps/api/main.go.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/", h.Index)
	r.Get("/health", h.Health)
	r.Get("/station/", h.StationList)
	r.Get("/station/{name}/", h.StationSummary)
	r.Get("/station/{name}/{platform}/", h.PlatformDetail)
	r.Get("/debug/", h.Debug)

	r.Get("/homeassistant/stations/", h.HomeAssistantStations)
	r.Get("/homeassistant/station/{name}/", h.HomeAssistantStation)
	r.Get("/homeassistant/station/{name}/outgoing/", h.HomeAssistantOutgoing)
	r.Get("/homeassistant/station/{name}/incoming/", h.HomeAssistantIncoming)

	return r
}
