package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/httputil"
)

// userIDParam parses {id} as a user id. Unlike record ids it accepts 0, the
// super-admin's id.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		httputil.WriteAppError(w, r, apperr.Validation("Invalid id: "+raw))
		return 0, false
	}
	return id, true
}
