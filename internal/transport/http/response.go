package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"

	apierrors "companywise/internal/errors"
	"companywise/internal/middleware"
)

// envelope is the success response shape.
type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  *int        `json:"count,omitempty"`
}

func respond(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, envelope{Status: "success", Data: data})
}

func respondList(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, envelope{Status: "success", Data: data, Count: &count})
}

// decodeJSON decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apierrors.InvalidRequestWithError(err)
	}
	return nil
}

// identityOf returns the caller's progress identity; "" is anonymous.
func identityOf(r *http.Request) middleware.Identity {
	identity, _ := middleware.IdentityFromContext(r.Context())
	return identity
}
