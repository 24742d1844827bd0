package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/render"

	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/discovery"
	"desktop2mqtt/internal/state"
)

// sseSubscribers is used to generate unique bus subscriber names.
var sseSubscribers atomic.Uint64

// errResponse describes error response for any API call.
type errResponse struct {
	Err            error  `json:"-"`               // low-level runtime error
	HTTPStatusCode int    `json:"-"`               // http response status code
	StatusText     string `json:"status"`          // user-level status message
	ErrorText      string `json:"error,omitempty"` // application-level error message, for debugging
}

// Render response.
func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// unavailableError returns 503 http error when data is not available yet.
func unavailableError(err error) render.Renderer {
	return &errResponse{
		Err:            err,
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "Not available.",
		ErrorText:      err.Error(),
	}
}

// unableToPerformError returns 500 http error in case we are not able to
// perform request.
func unableToPerformError(err error) render.Renderer {
	return &errResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Unable to perform request.",
		ErrorText:      err.Error(),
	}
}

// stateHandler returns last published desktop state.
// wget -O - -S -q http://localhost:8080/api/state
func stateHandler(s *Snapshots) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		last := s.Last()
		if last == nil {
			render.Render(w, r, unavailableError(errors.New("state not published yet")))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(last)
	}
}

// entitiesHandler returns all Home Assistant registrations.
// wget -O - -S -q http://localhost:8080/api/entities
func entitiesHandler(registrations []discovery.Registration) func(http.ResponseWriter, *http.Request) {
	if registrations == nil {
		registrations = []discovery.Registration{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, registrations)
	}
}

// sseHandler streams every published desktop state as server-sent events.
// wget -O - -S -q http://localhost:8080/api/sse
func sseHandler(evBus *bus.Bus) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			render.Render(w, r, unableToPerformError(errors.New("streaming not supported")))
			return
		}

		subName := fmt.Sprintf("sse-%d", sseSubscribers.Add(1))
		ch, err := evBus.Subscribe(state.SnapshotChannel, subName, 10)
		if err != nil {
			render.Render(w, r, unableToPerformError(err))
			return
		}
		defer evBus.Unsubscribe(state.SnapshotChannel, subName)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case e, ok := <-ch:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", e.Data.([]byte)); err != nil {
					log.Printf("unable to write sse event for %s: %s", subName, err)
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}
