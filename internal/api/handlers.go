// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/tomtom215/enlace/internal/config"
	"github.com/tomtom215/enlace/internal/live"
	"github.com/tomtom215/enlace/internal/logging"
	"github.com/tomtom215/enlace/internal/mirror"
	"github.com/tomtom215/enlace/internal/traccar"
)

// Trail window bounds in hours.
const (
	defaultTrailHours = 24
	maxTrailHours     = 168
)

// Handler carries the wired components behind the HTTP surface.
type Handler struct {
	cfg       *config.Config
	cache     *live.Cache
	mirror    *mirror.Service
	upstream  *traccar.Client
	validate  *validator.Validate
	startTime time.Time
}

// NewHandler creates the handler set.
func NewHandler(cfg *config.Config, cache *live.Cache, mirrorSvc *mirror.Service, upstream *traccar.Client) *Handler {
	return &Handler{
		cfg:       cfg,
		cache:     cache,
		mirror:    mirrorSvc,
		upstream:  upstream,
		validate:  validator.New(),
		startTime: time.Now(),
	}
}

// fixDTO is the position payload served to browsers.
type fixDTO struct {
	DeviceID   int64     `json:"deviceId"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	SpeedKph   *float64  `json:"speedKph,omitempty"`
	HeadingDeg *float64  `json:"headingDeg,omitempty"`
	FixTime    time.Time `json:"fixTime"`
	Stale      bool      `json:"stale"`
}

// toDTO attaches the staleness flag to a cached fix.
func (h *Handler) toDTO(fix live.Fix) fixDTO {
	return fixDTO{
		DeviceID:   fix.DeviceID,
		Lat:        fix.Lat,
		Lon:        fix.Lon,
		SpeedKph:   fix.SpeedKph,
		HeadingDeg: fix.HeadingDeg,
		FixTime:    fix.FixTime,
		Stale:      live.IsStale(fix.FixTime, h.cfg.Traccar.StaleAfter, h.cfg.Traccar.ClockOffset),
	}
}

// Health reports service liveness and feed state. A down feed answers 503 so
// orchestrators can see the upstream outage without parsing the body.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.cache.State()
	body := map[string]interface{}{
		"status": "up",
		"feed":   state.String(),
		"uptime": int64(time.Since(h.startTime).Seconds()),
	}

	status := http.StatusOK
	if state == live.FeedDown {
		body["status"] = "down"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// AdminLive serves the latest fix for a device: 200 with the dto, 204 when
// no fix has arrived yet, 503 when the feed is down.
func (h *Handler) AdminLive(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := parseDeviceIDQuery(w, r)
	if !ok {
		return
	}

	if h.cache.State() == live.FeedDown {
		writeError(w, http.StatusServiceUnavailable, ErrCodeFeedDown)
		return
	}

	fix, found := h.cache.Get(deviceID)
	if !found {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, h.toDTO(fix))
}

// AdminTrail proxies a route report from the upstream. Enlace does not
// interpret trail points; the upstream payload is passed through.
func (h *Handler) AdminTrail(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := parseDeviceIDQuery(w, r)
	if !ok {
		return
	}
	hours := parseTrailHours(r)

	h.serveTrail(w, r, deviceID, hours)
}

// serveTrail fetches and writes a trail window, shared by the admin and
// mirror surfaces.
func (h *Handler) serveTrail(w http.ResponseWriter, r *http.Request, deviceID int64, hours int) {
	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	positions, err := h.upstream.FetchRoute(r.Context(), deviceID, from, to)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int64("device_id", deviceID).Msg("Trail fetch failed")
		writeError(w, http.StatusBadGateway, ErrCodeRouteFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trail": positions})
}

// createDeviceRequest is the admin device creation body.
type createDeviceRequest struct {
	UniqueID string `json:"uniqueId" validate:"required,max=128"`
	Name     string `json:"name" validate:"required,max=128"`
}

// DeviceCreate registers a device with the upstream and mirrors it as a
// local stub.
func (h *Handler) DeviceCreate(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest)
		return
	}

	dev, err := h.upstream.CreateDevice(r.Context(), req.UniqueID, req.Name)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Upstream device creation failed")
		writeError(w, http.StatusBadGateway, ErrCodeUpstreamFail)
		return
	}
	if _, err := h.mirror.RegisterDevice(r.Context(), dev.ID, dev.UniqueID, dev.Name); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Local device stub creation failed")
	}

	writeJSON(w, http.StatusCreated, dev)
}

// DeviceList returns the devices visible to the upstream session.
func (h *Handler) DeviceList(w http.ResponseWriter, r *http.Request) {
	devices, err := h.upstream.FetchDevices(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Upstream device list failed")
		writeError(w, http.StatusBadGateway, ErrCodeUpstreamFail)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// DeviceDelete removes a device upstream and drops the local stub.
func (h *Handler) DeviceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest)
		return
	}

	if err := h.upstream.DeleteDevice(r.Context(), id); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("device_id", id).Msg("Upstream device delete failed")
		writeError(w, http.StatusBadGateway, ErrCodeUpstreamFail)
		return
	}
	if err := h.mirror.RemoveDevice(r.Context(), id); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("device_id", id).Msg("Local stub delete failed")
	}
	writeNoContent(w)
}

// createMirrorRequest is the link issuance body. ExpirationHours is a
// pointer so an absent field (default TTL) stays distinct from an explicit
// zero, which mints an already-expired link.
type createMirrorRequest struct {
	TraccarDeviceID int64 `json:"traccarDeviceId" validate:"required,gt=0"`
	ExpirationHours *int  `json:"expirationHours" validate:"omitempty,gte=0,lte=8760"`
}

// createMirrorResponse is the issuance payload: the token, a ready-to-share
// URL and the expiry instant.
type createMirrorResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MirrorCreate issues a new mirror link.
func (h *Handler) MirrorCreate(w http.ResponseWriter, r *http.Request) {
	var req createMirrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest)
		return
	}

	var ttlOverride *time.Duration
	if req.ExpirationHours != nil {
		d := time.Duration(*req.ExpirationHours) * time.Hour
		ttlOverride = &d
	}
	link, err := h.mirror.Issue(r.Context(), req.TraccarDeviceID, ttlOverride)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Link issuance failed")
		writeError(w, http.StatusInternalServerError, ErrCodeBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, createMirrorResponse{
		Token:     link.Token,
		URL:       h.mirrorURL(r, link.Token),
		ExpiresAt: link.ExpiresAt,
	})
}

// mirrorURL builds the shareable viewer URL for a token, preferring the
// configured public base over the request's host.
func (h *Handler) mirrorURL(r *http.Request, token string) string {
	if base := h.cfg.Mirror.PublicBaseURL; base != "" {
		return strings.TrimRight(base, "/") + "/ver/" + token
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/ver/" + token
}

// MirrorLatest serves the latest fix behind a token: 200 with the dto, 204
// when the device has not reported yet, 410 for any unusable token.
func (h *Handler) MirrorLatest(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	fix, found, err := h.mirror.LatestByToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusGone, ErrCodeTokenExpired)
		return
	}
	if !found {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusOK, h.toDTO(fix))
}

// MirrorTrail serves the trail window behind a token.
func (h *Handler) MirrorTrail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	deviceID, ok := h.mirror.ResolveActiveDeviceID(r.Context(), token)
	if !ok {
		writeError(w, http.StatusGone, ErrCodeTokenExpired)
		return
	}
	h.serveTrail(w, r, deviceID, parseTrailHours(r))
}

// MirrorRevoke invalidates a link immediately. Revoking an already unusable
// token answers the same 410 as viewing it would.
func (h *Handler) MirrorRevoke(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.mirror.Revoke(r.Context(), token); err != nil {
		if errors.Is(err, mirror.ErrLinkInactive) {
			writeError(w, http.StatusGone, ErrCodeTokenExpired)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Revocation failed")
		writeError(w, http.StatusInternalServerError, ErrCodeBadRequest)
		return
	}
	writeNoContent(w)
}

// parseDeviceIDQuery extracts a positive deviceId query parameter, answering
// 400 itself when absent or malformed.
func parseDeviceIDQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("deviceId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest)
		return 0, false
	}
	return id, true
}

// parseTrailHours reads the hours query parameter, clamped to the allowed
// window.
func parseTrailHours(r *http.Request) int {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return defaultTrailHours
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 {
		return defaultTrailHours
	}
	if hours > maxTrailHours {
		return maxTrailHours
	}
	return hours
}
