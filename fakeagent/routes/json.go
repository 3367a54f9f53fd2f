package routes

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Detail interface{} `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			writeJSON(w, status, errorBody{Detail: map[string]string{"message": err.Error()}})
			return
		}
		writeJSON(w, status, res)
	}
}
