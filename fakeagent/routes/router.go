package routes

import (
	"fakeagent/fakeagent/agents/configs"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/controllers"
	"fakeagent/fakeagent/middlewares"
	"fakeagent/fakeagent/services/metrics"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Config  config.Config
	Health  *controllers.HealthController
	Runs    *controllers.RunController
	Threads *controllers.ThreadController // nil when the journal database is off
	Metrics *metrics.Metrics
}

const defaultRequestTimeout = 60 * time.Second

func NewRouter(d Deps) http.Handler {
	timeout := d.Config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	runTimeout := timeout + time.Duration(configs.DefaultActivityCount)*d.Config.RunDelay

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(timeout))
		gr.Get("/", d.Health.Root)
		gr.Mount("/health", HealthRoutes(d.Health))
		gr.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
		if d.Threads != nil {
			gr.Mount("/threads", ThreadRoutes(d.Threads, d.Config))
		}
	})

	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(d.Config))
		RunRoutes(gr.With(middleware.Timeout(runTimeout)), d.Runs)
		// streams end on their own or when the client goes away
		RunStreamRoutes(gr, d.Runs)
	})
	RunWebSocketRoutes(r, d.Runs, d.Config)
	return r
}
