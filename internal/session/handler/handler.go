// Package handler exposes session lifecycle operations over HTTP. It is a
// thin translation layer: DTO decoding, domain error mapping, no business
// logic.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Manoelfg123/wpp-ohi/internal/protocol"
	"github.com/Manoelfg123/wpp-ohi/internal/session/manager"
	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
	dErrors "github.com/Manoelfg123/wpp-ohi/pkg/domainerrors"
	"github.com/Manoelfg123/wpp-ohi/pkg/httputil"
)

// Service is the lifecycle surface the HTTP layer consumes.
type Service interface {
	DefaultConfig() models.Config
	CreateSession(ctx context.Context, cfg models.Config) (*models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]*models.Session, error)
	UpdateSession(ctx context.Context, sessionID string, cfg models.Config) (*models.Session, error)
	GetSessionInfo(ctx context.Context, sessionID string) (*manager.SessionInfo, error)
	GetQRCode(ctx context.Context, sessionID string) (*models.QRCredential, error)
	StartSession(ctx context.Context, sessionID string) error
	DisconnectSession(ctx context.Context, sessionID string) error
	ReconnectSession(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	SendMessage(ctx context.Context, sessionID string, content []byte) (protocol.Receipt, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the session routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.HandleCreateSession)
	r.Get("/sessions", h.HandleListSessions)
	r.Get("/sessions/{id}", h.HandleGetSession)
	r.Get("/sessions/{id}/info", h.HandleGetSessionInfo)
	r.Get("/sessions/{id}/qr", h.HandleGetQRCode)
	r.Patch("/sessions/{id}", h.HandleUpdateSession)
	r.Post("/sessions/{id}/disconnect", h.HandleDisconnectSession)
	r.Post("/sessions/{id}/reconnect", h.HandleReconnectSession)
	r.Delete("/sessions/{id}", h.HandleDeleteSession)
	r.Post("/sessions/{id}/messages", h.HandleSendMessage)
}

type sessionConfigRequest struct {
	RestartOnAuthFail *bool  `json:"restartOnAuthFail,omitempty"`
	MaxRetries        *int   `json:"maxRetries,omitempty"`
	QRTimeoutMs       *int64 `json:"qrTimeoutMs,omitempty"`
}

func (r *sessionConfigRequest) apply(cfg models.Config) models.Config {
	if r == nil {
		return cfg
	}
	if r.RestartOnAuthFail != nil {
		cfg.RestartOnAuthFail = *r.RestartOnAuthFail
	}
	if r.MaxRetries != nil {
		cfg.MaxRetries = *r.MaxRetries
	}
	if r.QRTimeoutMs != nil {
		cfg.QRTimeout = time.Duration(*r.QRTimeoutMs) * time.Millisecond
	}
	return cfg
}

type createSessionRequest struct {
	Config *sessionConfigRequest `json:"config,omitempty"`
	Start  bool                  `json:"start,omitempty"`
}

type sessionConfigResponse struct {
	RestartOnAuthFail bool  `json:"restartOnAuthFail"`
	MaxRetries        int   `json:"maxRetries"`
	QRTimeoutMs       int64 `json:"qrTimeoutMs"`
}

type sessionResponse struct {
	ID        string                `json:"id"`
	Status    string                `json:"status"`
	Config    sessionConfigResponse `json:"config"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

func toSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{
		ID:     s.ID,
		Status: string(s.Status),
		Config: sessionConfigResponse{
			RestartOnAuthFail: s.Config.RestartOnAuthFail,
			MaxRetries:        s.Config.MaxRetries,
			QRTimeoutMs:       s.Config.QRTimeout.Milliseconds(),
		},
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type identityResponse struct {
	JID      string `json:"jid"`
	Platform string `json:"platform,omitempty"`
	PushName string `json:"pushName,omitempty"`
}

type sessionInfoResponse struct {
	sessionResponse
	Active   bool              `json:"active"`
	Identity *identityResponse `json:"identity,omitempty"`
}

type qrCodeResponse struct {
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ExpiresInMs int64     `json:"expiresInMs"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	ID string `json:"id"`
}

// HandleCreateSession implements POST /sessions. With "start": true the
// session is also connected immediately; a start failure still returns the
// created record so callers can retry the connection alone.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	req, ok := httputil.DecodeJSON[createSessionRequest](w, r)
	if !ok {
		return
	}

	session, err := h.service.CreateSession(ctx, req.Config.apply(h.service.DefaultConfig()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if req.Start {
		if err := h.service.StartSession(ctx, session.ID); err != nil {
			h.logger.WarnContext(ctx, "start after create failed",
				"session_id", session.ID, "error", err)
		} else if refreshed, err := h.service.GetSession(ctx, session.ID); err == nil {
			session = refreshed
		}
	}

	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

// HandleListSessions implements GET /sessions.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// HandleGetSession implements GET /sessions/{id}.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleGetSessionInfo implements GET /sessions/{id}/info. Live connection
// metadata is best effort; the durable record alone is a valid answer.
func (h *Handler) HandleGetSessionInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.GetSessionInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := sessionInfoResponse{
		sessionResponse: toSessionResponse(info.Session),
		Active:          info.Active,
	}
	if info.Identity != nil {
		resp.Identity = &identityResponse{
			JID:      info.Identity.JID,
			Platform: info.Identity.Platform,
			PushName: info.Identity.PushName,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetQRCode implements GET /sessions/{id}/qr.
func (h *Handler) HandleGetQRCode(w http.ResponseWriter, r *http.Request) {
	cred, err := h.service.GetQRCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, qrCodeResponse{
		Code:        cred.Code,
		ExpiresAt:   cred.ExpiresAt,
		ExpiresInMs: cred.ExpiresIn(time.Now()).Milliseconds(),
	})
}

// HandleUpdateSession implements PATCH /sessions/{id}. Only the fields
// present in the body change; config takes effect on the next (re)connect.
func (h *Handler) HandleUpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	req, ok := httputil.DecodeJSON[sessionConfigRequest](w, r)
	if !ok {
		return
	}

	current, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.UpdateSession(ctx, sessionID, req.apply(current.Config))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleDisconnectSession implements POST /sessions/{id}/disconnect. A
// session with no live connection is already in the requested state, so the
// not-active case reports success.
func (h *Handler) HandleDisconnectSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	err := h.service.DisconnectSession(r.Context(), sessionID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotActive) {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"id":     sessionID,
		"status": string(models.StatusDisconnected),
	})
}

// HandleReconnectSession implements POST /sessions/{id}/reconnect. Also
// serves as the explicit start for a session created without "start".
func (h *Handler) HandleReconnectSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := h.service.ReconnectSession(ctx, sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleDeleteSession implements DELETE /sessions/{id}.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSendMessage implements POST /sessions/{id}/messages.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	req, ok := httputil.DecodeJSON[sendMessageRequest](w, r)
	if !ok {
		return
	}
	if req.Content == "" {
		httputil.WriteError(w, dErrors.Validation("invalid message", map[string]string{
			"content": "must not be empty",
		}))
		return
	}

	receipt, err := h.service.SendMessage(ctx, sessionID, []byte(req.Content))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sendMessageResponse{ID: receipt.ID})
}
