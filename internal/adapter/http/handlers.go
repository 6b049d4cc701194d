package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/viewer"
)

const (
	maxRequestBody = 1 << 16
	queryWaitSlack = 5 * time.Second
)

type queryRequest struct {
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	MinMagnitude float64 `json:"min_magnitude"`
	Limit        int     `json:"limit"`
}

type filterRequest struct {
	Text string `json:"text"`
}

type cursorRequest struct {
	Cursor *int `json:"cursor"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type playbackRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.viewer.Frame())
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	data, err := s.viewer.Frame().FeatureCollection().MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("encode feature collection: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client may have gone away
}

// handleQuery replaces the active query. With ?wait=true the response is
// held until the fetch settles or the client gives up.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	q, err := domain.ParseQuery(req.StartDate, req.EndDate, req.MinMagnitude, req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	done, err := s.viewer.SetQuery(q)
	if err != nil {
		s.writeViewerError(w, err)
		return
	}
	if r.URL.Query().Get("wait") == "true" && !s.awaitFetch(w, r, done) {
		return
	}
	s.writeFrame(w)
}

// awaitFetch holds the response until done closes or queryWait passes, in
// which case the frame is sent with loading still set. The write deadline is
// pushed out past queryWait so the server's WriteTimeout cannot cut the
// response off. Returns false when the client went away.
func (s *Server) awaitFetch(w http.ResponseWriter, r *http.Request, done <-chan struct{}) bool {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(s.queryWait + queryWaitSlack)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("extend write deadline failed", "error", err)
	}

	timer := time.NewTimer(s.queryWait)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.logger.Debug("query wait elapsed before fetch settled", "wait", s.queryWait)
	case <-r.Context().Done():
		return false
	}
	return true
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.viewer.SetText(req.Text); err != nil {
		s.writeViewerError(w, err)
		return
	}
	s.writeFrame(w)
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	var req cursorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Cursor == nil {
		writeError(w, http.StatusBadRequest, errors.New("cursor is required"))
		return
	}
	if _, err := s.viewer.SetCursor(*req.Cursor); err != nil {
		s.writeViewerError(w, err)
		return
	}
	s.writeFrame(w)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := domain.ParseViewMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.viewer.SetMode(mode); err != nil {
		s.writeViewerError(w, err)
		return
	}
	s.writeFrame(w)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	theme, err := domain.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.viewer.SetTheme(theme); err != nil {
		s.writeViewerError(w, err)
		return
	}
	s.writeFrame(w)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	var req playbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	switch req.Action {
	case "play":
		err = s.viewer.Play()
	case "pause":
		err = s.viewer.Pause()
	case "toggle":
		err = s.viewer.TogglePlayback()
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown playback action %q", req.Action))
		return
	}
	if err != nil {
		s.writeViewerError(w, err)
		return
	}
	s.writeFrame(w)
}

func (s *Server) writeFrame(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.viewer.Frame())
}

func (s *Server) writeViewerError(w http.ResponseWriter, err error) {
	if errors.Is(err, viewer.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
