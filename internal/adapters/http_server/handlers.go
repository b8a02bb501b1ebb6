// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"grouptrip/internal/app"
	"grouptrip/internal/domain"
)

const maxBody = 1 << 20

type Handlers struct{ P *app.PlannerService }

type problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.analyze)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.abandon)
			r.Post("/discover", h.discover)
			r.Post("/rank", h.rank)
			r.Post("/cart", h.buildCart)
			r.Get("/cart", h.getCart)
			r.Patch("/cart", h.modifyCart)
			r.Post("/checkout", h.checkout)
		})
	})
	s.mux.Get("/v1/bookings/{id}", h.getBooking)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *domain.ValidationError
		nre *domain.NotReadyError
		uce *domain.UnknownCategoryError
		ece *domain.EmptyCartError
		mce *domain.MixedCurrencyError
	)
	switch {
	case errors.As(err, &ve):
		writeProblemBody(w, problem{Type: "about:blank", Title: "Validation Failed", Status: http.StatusBadRequest, Detail: err.Error(), Errors: ve.Fields})
	case errors.As(err, &ece):
		writeProblem(w, http.StatusUnprocessableEntity, "Empty Cart", err.Error())
	case errors.As(err, &mce):
		writeProblem(w, http.StatusUnprocessableEntity, "Mixed Currency", err.Error())
	case errors.Is(err, domain.ErrAmountOverflow):
		writeProblem(w, http.StatusUnprocessableEntity, "Amount Out Of Range", err.Error())
	case errors.As(err, &nre):
		writeProblem(w, http.StatusConflict, "Not Ready", err.Error())
	case errors.As(err, &uce):
		writeProblem(w, http.StatusNotFound, "Unknown Category", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case r.Context().Err() != nil && errors.Is(err, r.Context().Err()):
		// client went away; nothing useful to send
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request canceled")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// decode reads a JSON body into dst. An empty body leaves dst untouched when
// optional is set.
func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached serves v with a weak ETag and honors If-None-Match.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

type sessionResponse struct {
	SessionID    string                  `json:"session_id"`
	Status       domain.SessionStatus    `json:"status"`
	Requirements domain.TripRequirements `json:"requirements"`
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var in app.AnalyzeInput
	if !decode(w, r, &in, false) {
		return
	}
	sess, err := h.P.Analyze(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID, Status: sess.Status, Requirements: sess.Requirements})
}

type discoveryResponse struct {
	SessionID string                                      `json:"session_id"`
	Counts    map[domain.Category]int                     `json:"counts"`
	Options   map[domain.Category][]domain.CategoryOption `json:"options"`
	Failures  []domain.ProviderError                      `json:"failures"`
	Provided  int                                         `json:"provided_packages"`
}

func (h *Handlers) discover(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.P.Discover(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := discoveryResponse{
		SessionID: id,
		Counts:    make(map[domain.Category]int, len(domain.Categories)),
		Options:   res.Options,
		Failures:  res.Failures,
		Provided:  len(res.Provided),
	}
	for _, c := range domain.Categories {
		out.Counts[c] = len(res.Options[c])
	}
	if out.Failures == nil {
		out.Failures = []domain.ProviderError{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) rank(w http.ResponseWriter, r *http.Request) {
	var raw domain.Weights
	if !decode(w, r, &raw, true) {
		return
	}
	weights, err := app.NormalizeWeights(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		limit = l
	}

	pkgs, err := h.P.Rank(r.Context(), chi.URLParam(r, "id"), weights)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if limit > 0 && len(pkgs) > limit {
		pkgs = pkgs[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": pkgs})
}

func (h *Handlers) buildCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PackageID string `json:"package_id"`
	}
	if !decode(w, r, &in, false) {
		return
	}
	if in.PackageID == "" {
		writeError(w, r, &domain.ValidationError{Fields: []domain.FieldError{{Field: "package_id", Reason: "is required"}}})
		return
	}
	cart, err := h.P.BuildCart(r.Context(), chi.URLParam(r, "id"), in.PackageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

func (h *Handlers) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.P.GetCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, cart)
}

func (h *Handlers) modifyCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Category string         `json:"category"`
		Action   app.CartAction `json:"action"`
		Quantity *int           `json:"quantity"`
	}
	if !decode(w, r, &in, false) {
		return
	}
	c, err := domain.ParseCategory(in.Category)
	if err != nil {
		writeError(w, r, &domain.UnknownCategoryError{Category: domain.Category(in.Category)})
		return
	}
	if in.Action == "" {
		in.Action = app.ActionUpdate
	}
	edit := app.CartEdit{Category: c, Action: in.Action}
	if in.Quantity != nil {
		edit.Quantity = *in.Quantity
	} else if in.Action == app.ActionUpdate {
		writeError(w, r, &domain.ValidationError{Fields: []domain.FieldError{{Field: "quantity", Reason: "required for update"}}})
		return
	}
	cart, err := h.P.ModifyCart(r.Context(), chi.URLParam(r, "id"), edit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handlers) abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.P.Abandon(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) checkout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Contact domain.ContactInfo `json:"contact"`
		Payment domain.PaymentInfo `json:"payment"`
	}
	if !decode(w, r, &in, false) {
		return
	}
	b, err := h.P.Checkout(r.Context(), chi.URLParam(r, "id"), in.Contact, in.Payment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/bookings/"+b.ID)
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.P.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, b)
}
