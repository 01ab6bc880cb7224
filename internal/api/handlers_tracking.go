package api

import (
	"net/http"

	"github.com/shopfront-dev/storefront/internal/httpserver"
	"github.com/shopfront-dev/storefront/internal/tracking"
)

// First-party cookies set by the pixel SDK.
const (
	cookieFBP = "_fbp"
	cookieFBC = "_fbc"
)

type navigateRequest struct {
	Path string `json:"path"`
	FBP  string `json:"fbp,omitempty"`
	FBC  string `json:"fbc,omitempty"`
}

// Navigate handles POST /api/navigate. Browser ids come from the request
// body or the _fbp/_fbc cookies. A failed primary tracking cycle answers
// 502; the path still counts as tracked.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := httpserver.Decode(r, &req); err != nil {
		httpserver.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}

	ids := tracking.BrowserIDs{FBP: req.FBP, FBC: req.FBC}
	if c, err := r.Cookie(cookieFBP); err == nil && ids.FBP == "" {
		ids.FBP = c.Value
	}
	if c, err := r.Cookie(cookieFBC); err == nil && ids.FBC == "" {
		ids.FBC = c.Value
	}
	s.Cookies.Update(ids, r.UserAgent())

	res, err := s.Navigator.Navigate(r.Context(), req.Path)
	if err != nil {
		httpserver.Error(w, http.StatusBadGateway, "tracking failed: "+err.Error())
		return
	}
	httpserver.JSON(w, http.StatusOK, res)
}
