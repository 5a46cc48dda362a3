package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumina/internal/editor"
)

// session resolves {id} for the caller, writing the error response when it
// cannot.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	s, err := a.Editor.Get(chi.URLParam(r, "id"), userID)
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return s, true
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	s, err := a.Editor.Create(userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, s.Snapshot())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.Editor.Delete(chi.URLParam(r, "id"), userID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage replaces the session's working image.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	f, cleanup, err := a.readFile(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.Upload(r.Context(), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	state := s.Snapshot()
	body := map[string]any{"session": state, "url": res.URL}
	if res.Quota != nil {
		body["usage"] = res.Quota
	}
	a.json(w, http.StatusCreated, body)
}

func (a *App) ClearImage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.ClearImage()
	a.json(w, http.StatusOK, s.Snapshot())
}

type toggleResponse struct {
	Result  editor.Toggle `json:"result"`
	Session editor.State  `json:"session"`
}

func (a *App) ToggleEffect(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	result, err := s.ToggleEffect(chi.URLParam(r, "effect_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toggleResponse{Result: result, Session: s.Snapshot()})
}

type promptRequest struct {
	Text string `json:"text"`
}

func (a *App) SubmitPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	result, err := s.SubmitPrompt(req.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toggleResponse{Result: result, Session: s.Snapshot()})
}

func (a *App) CancelPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.CancelPrompt()
	a.json(w, http.StatusOK, s.Snapshot())
}

// compareRequest either sets the boundary directly or from a pointer event.
type compareRequest struct {
	Position *float64 `json:"position"`
	PointerX *float64 `json:"pointer_x"`
	Left     float64  `json:"left"`
	Width    float64  `json:"width"`
}

func (a *App) SetCompare(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	switch {
	case req.PointerX != nil:
		s.SetComparePointer(*req.PointerX, req.Left, req.Width)
	case req.Position != nil:
		s.SetComparePosition(*req.Position)
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "position or pointer_x required")
		return
	}
	a.json(w, http.StatusOK, s.Snapshot().Comparison)
}

func (a *App) ToggleCompare(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if _, err := s.ToggleComparison(); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot().Comparison)
}
