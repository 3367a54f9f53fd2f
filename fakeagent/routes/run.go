// fakeagent/routes/run.go
package routes

import (
	"encoding/json"
	"errors"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/controllers"
	"fakeagent/fakeagent/types"
	"fakeagent/fakeagent/utils/logging"
	"fakeagent/fakeagent/utils/sse"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errMissingThread = errors.New("thread is required")

func decodeRunRequest(r *http.Request) (types.Thread, error) {
	var req types.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return types.Thread{}, err
	}
	if req.Thread == nil {
		return types.Thread{}, errMissingThread
	}
	if err := req.Thread.Validate(); err != nil {
		return types.Thread{}, err
	}
	return *req.Thread, nil
}

// RunRoutes registers the buffered POST /run on r.
func RunRoutes(r chi.Router, ctrl *controllers.RunController) {
	r.Post("/run", handleJSON(func(r *http.Request) (any, int, error) {
		thread, err := decodeRunRequest(r)
		if err != nil {
			return nil, http.StatusUnprocessableEntity, err
		}
		res, err := ctrl.Run(r.Context(), thread)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return res, http.StatusOK, nil
	}))
}

// RunStreamRoutes registers POST /run_stream (SSE) on r. It must not sit
// behind a request timeout: the stream outlives it.
func RunStreamRoutes(r chi.Router, ctrl *controllers.RunController) {
	r.Post("/run_stream", func(w http.ResponseWriter, r *http.Request) {
		thread, err := decodeRunRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: map[string]string{"message": err.Error()}})
			return
		}
		stream, err := sse.NewWriter(w)
		if err != nil {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := ctrl.Stream(r.Context(), controllers.ModeStream, thread, stream); err != nil {
			logging.ErrorLogger.Error("stream aborted", zap.String("thread_id", thread.ID), zap.Error(err))
		}
	})
}

// RunWebSocketRoutes registers GET /run_ws. Authentication happens inside
// the socket, so it sits outside the bearer-token group.
func RunWebSocketRoutes(r chi.Router, ctrl *controllers.RunController, cfg config.Config) {
	r.HandleFunc("/run_ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			logging.ErrorLogger.Error("websocket accept error", zap.Error(err))
			return
		}
		ctrl.RunWebSocket(r.Context(), conn, cfg.JWTSecret)
	})
}
