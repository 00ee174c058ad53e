package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/directory"
	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geo"
	"github.com/sells-group/provider-directory/internal/query"
)

func (h *handler) checkHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "store unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) filter(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	page, err := h.dir.Filter(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) unapproved(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r.URL.Query(), "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	page, err := h.dir.GetUnapproved(r.Context(), n)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) filterFull(w http.ResponseWriter, r *http.Request) {
	var f query.AdminFilter
	if !decode(w, r, &f) {
		return
	}
	page, err := h.dir.FilterFull(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) addEntry(w http.ResponseWriter, r *http.Request) {
	var e entry.Entry
	if !decode(w, r, &e) || !valid(w, &e) {
		return
	}
	id, err := h.dir.AddEntry(r.Context(), &e)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *handler) getEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.dir.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) approve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Approved bool `json:"approved"`
	}
	if !decode(w, r, &body) {
		return
	}
	claims, _ := ClaimsFrom(r.Context())
	if err := h.dir.Approve(r.Context(), chi.URLParam(r, "id"), claims.ID, body.Approved); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) edit(w http.ResponseWriter, r *http.Request) {
	var e entry.Entry
	if !decode(w, r, &e) || !valid(w, &e) {
		return
	}
	if err := h.dir.Update(r.Context(), chi.URLParam(r, "id"), &e); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) block(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Blocked bool `json:"blocked"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := h.dir.Block(r.Context(), chi.URLParam(r, "id"), body.Blocked); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.dir.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) updateGeo(w http.ResponseWriter, r *http.Request) {
	if err := h.dir.UpdateGeo(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *handler) backup(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = directory.FormatJSON
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	var buf bytes.Buffer
	written, err := h.dir.Export(r.Context(), &buf, format, force)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !written {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if format == directory.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="entries.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handler) findGeoLocation(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("search"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "invalid_query", "search is required")
		return
	}
	places := h.dir.FindGeoLocation(r.Context(), text)
	if len(places) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "no matching place")
		return
	}
	writeJSON(w, http.StatusOK, places)
}

func (h *handler) findGeoName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := floatParam(q, "lat")
	if err == nil && lat == nil {
		err = eris.New("lat is required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	lng, err := floatParam(q, "long")
	if err == nil && lng == nil {
		err = eris.New("long is required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	places := h.dir.FindGeoName(r.Context(), geo.NewPoint(*lng, *lat))
	if len(places) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "no matching place")
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

// valid answers 400 with every violation when e does not validate.
func valid(w http.ResponseWriter, e *entry.Entry) bool {
	problems := e.Validate()
	if len(problems) == 0 {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_entry", Details: problems})
	return false
}

// parseCriteria reads the public filter from a query string. List
// parameters may be repeated or comma separated.
func parseCriteria(q url.Values) (query.Criteria, error) {
	c := query.Criteria{
		Type:       q.Get("type"),
		Offers:     listParam(q, "offers"),
		Attributes: listParam(q, "attributes"),
		Text:       q.Get("text"),
		Accessible: q.Get("accessible"),
		Location:   strings.TrimSpace(q.Get("location")),
	}

	var err error
	if c.Page, err = intParam(q, "page"); err != nil {
		return c, err
	}
	if c.Lat, err = floatParam(q, "lat"); err != nil {
		return c, err
	}
	if c.Lng, err = floatParam(q, "long"); err != nil {
		return c, err
	}
	return c, nil
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(q url.Values, key string) (int, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Errorf("%s must be a number", key)
	}
	return &f, nil
}
