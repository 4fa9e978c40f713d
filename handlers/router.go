package handlers

import (
	"net/http"
	"time"

	"github.com/camden-git/peoplegraph/media"
	"github.com/camden-git/peoplegraph/realtime"
	"github.com/camden-git/peoplegraph/repository"
	"github.com/camden-git/peoplegraph/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP API is built from. Hub and
// Metrics are optional.
type Dependencies struct {
	Store       *repository.Store
	Media       media.Store
	Processor   *media.Processor
	Duplicates  *services.DuplicateService
	Merges      *services.MergeService
	Graph       *services.GraphService
	Connections *services.ConnectionService
	Hub         *realtime.Hub
	Metrics     http.Handler
	Log         *zap.Logger

	FacesPath      string
	ImageURLPrefix string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter wires every route onto a chi router
func NewRouter(d Dependencies) http.Handler {
	var events EventPublisher
	if d.Hub != nil {
		events = d.Hub
	}

	people := &PeopleHandler{Store: d.Store, Media: d.Media, Processor: d.Processor, Events: events, Log: d.Log, MaxUploadBytes: d.MaxUploadBytes}
	connections := &ConnectionHandler{Connections: d.Connections, Events: events, Log: d.Log}
	merges := &MergeHandler{Merges: d.Merges, Media: d.Media, Events: events, Log: d.Log}
	graph := &GraphHandler{Graph: d.Graph, Duplicates: d.Duplicates, Log: d.Log}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	// websocket connections outlive the request timeout
	if d.Hub != nil {
		r.Get("/ws", d.Hub.ServeWS)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/api", func(r chi.Router) {
			r.Route("/people", func(r chi.Router) {
				r.Post("/", people.CreatePerson)
				r.Get("/", people.ListPeople)
				r.Route("/{person_id}", func(r chi.Router) {
					r.Get("/", people.GetPerson)
					r.Post("/appearances", people.AddAppearance)
					r.Get("/merges", people.ListMerges)
					r.Get("/summary", graph.PersonSummary)
				})
			})

			r.Route("/connections", func(r chi.Router) {
				r.Post("/", connections.CreateConnection)
				r.Delete("/{connection_id}", connections.DeleteConnection)
			})

			r.Route("/owners/{owner_id}", func(r chi.Router) {
				r.Get("/connections", connections.ListConnections)
				r.Get("/duplicates", graph.ScanDuplicates)
				r.Get("/network", graph.Network)
				r.Get("/path", graph.Path)
			})

			r.Route("/merges", func(r chi.Router) {
				r.Post("/preview", merges.PreviewMerge)
				r.Post("/", merges.Merge)
			})
		})

		if d.FacesPath != "" && d.ImageURLPrefix != "" {
			r.Get(d.ImageURLPrefix+"/*", AssetServer(d.FacesPath, d.Log))
		}
	})

	return r
}
