package routes

import (
	"errors"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/controllers"
	"fakeagent/fakeagent/middlewares"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func ThreadRoutes(ctrl *controllers.ThreadController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// GET /threads/{thread_id}/runs?limit=N
		gr.Get("/{thread_id}/runs", handleJSON(func(r *http.Request) (any, int, error) {
			limit := 0
			if v := r.URL.Query().Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, http.StatusBadRequest, err
				}
				limit = n
			}
			runs, err := ctrl.ListRuns(r.Context(), chi.URLParam(r, "thread_id"), limit)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return runs, http.StatusOK, nil
		}))

		// GET /threads/{thread_id}/runs/{run_id}
		gr.Get("/{thread_id}/runs/{run_id}", handleJSON(func(r *http.Request) (any, int, error) {
			runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			run, err := ctrl.GetRun(r.Context(), chi.URLParam(r, "thread_id"), runID)
			if errors.Is(err, controllers.ErrRunNotFound) {
				return nil, http.StatusNotFound, err
			}
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return run, http.StatusOK, nil
		}))
	})
	return r
}
