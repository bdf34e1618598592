package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"factory-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// maxBodyBytes caps request bodies; plans with thousands of lines still fit
const maxBodyBytes = 1 << 20

// pathID reads a positive integer route variable, writing a 400 when it is not one
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		utils.Message(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// decode reads a JSON body into dst, writing a 400 on malformed input
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.Message(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
