package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dsolution-crm/internal/auth"
	"github.com/vovakirdan/dsolution-crm/internal/config"
	"github.com/vovakirdan/dsolution-crm/internal/core"
	"github.com/vovakirdan/dsolution-crm/internal/metrics"
	"github.com/vovakirdan/dsolution-crm/internal/proto"
	"github.com/vovakirdan/dsolution-crm/internal/utils"
)

const (
	errCodeUnsupportedVersion = "unsupported_version"
	errCodeInternal           = "internal"

	// envelopeOverhead covers JSON escaping of the body plus the token in a join frame.
	envelopeOverhead = 8 << 10
)

// WSHandler upgrades HTTP connections and bridges them to a relay session.
type WSHandler struct {
	hub         *core.Hub
	auth        *auth.Service
	jwtRequired bool
	rateLimit   int
	eventBuffer int
	readLimit   int64
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:         hub,
		auth:        authService,
		jwtRequired: cfg.JWTRequired,
		rateLimit:   cfg.RateLimitPerMinute,
		eventBuffer: cfg.EventBuffer,
		readLimit:   int64(cfg.MaxMessageBytes)*2 + envelopeOverhead,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(h.readLimit)

	client := core.NewClient(utils.NewID(), h.eventBuffer)
	session := h.hub.Connect(client)
	defer func() {
		session.Close()
		client.Close()
		h.log.Debug().Str("client_id", client.ID()).Str("identity", session.Identity()).Msg("ws session closed")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.rateLimit)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, session, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID()).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, session *core.Session, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID()).Msg("read ws inbound")
			return err
		}

		coreErr, err := h.handle(ctx, client, session, limiter, inbound)
		if err != nil {
			return err
		}
		if coreErr != nil {
			if err := client.Notify(ctx, &core.Event{Kind: core.EventError, Error: coreErr}); err != nil {
				return err
			}
		}
	}
}

// handle applies one inbound frame. A returned CoreError is reported to the
// client; a returned error ends the connection.
func (h *WSHandler) handle(ctx context.Context, client *core.Client, session *core.Session, limiter *rateLimiter, inbound proto.Inbound) (*core.CoreError, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := decodeData(inbound.Data, &join); err != nil {
			return core.NewError(core.ErrCodeBadRequest, "invalid join payload"), nil
		}
		if join.Protocol != 0 && join.Protocol != proto.ProtocolVersion {
			return core.NewError(errCodeUnsupportedVersion, "unsupported protocol version"), nil
		}
		identity, coreErr := h.resolveIdentity(join)
		if coreErr != nil {
			return coreErr, nil
		}
		if err := session.Join(identity); err != nil {
			return relayError(err)
		}
		h.log.Debug().Str("client_id", client.ID()).Str("identity", identity).Msg("ws joined")
		return nil, client.Notify(ctx, &core.Event{Kind: core.EventJoined, Identity: identity})

	case proto.InboundTypeSend:
		var send proto.SendData
		if err := decodeData(inbound.Data, &send); err != nil {
			return core.NewError(core.ErrCodeBadRequest, "invalid send payload"), nil
		}
		if !limiter.allow() {
			metrics.RateLimitHits.WithLabelValues("ws_send").Inc()
			return core.NewError(core.ErrCodeRateLimited, "too many messages"), nil
		}
		// The sender's own channel receives the message through the broadcast.
		if _, err := session.Submit(ctx, send.Body); err != nil {
			return relayError(err)
		}
		return nil, nil

	case proto.InboundTypeHistory:
		messages, err := session.History(ctx)
		if err != nil {
			return relayError(err)
		}
		return nil, client.Notify(ctx, &core.Event{
			Kind:     core.EventHistory,
			Identity: session.Identity(),
			Messages: messages,
		})

	default:
		return core.NewError(core.ErrCodeInvalidMessage, "unknown message type"), nil
	}
}

// resolveIdentity decides which conversation a join binds to.
// Staff tokens may join any conversation; customers only their own.
func (h *WSHandler) resolveIdentity(join proto.JoinData) (string, *core.CoreError) {
	if join.Token == "" {
		if h.jwtRequired {
			return "", core.NewError(core.ErrCodeUnauthorized, "token required")
		}
		if join.UserID == "" {
			return "", core.NewError(core.ErrCodeBadRequest, "user_id is required")
		}
		return join.UserID, nil
	}

	claims, err := h.auth.ValidateToken(join.Token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws token rejected")
		return "", core.NewError(core.ErrCodeUnauthorized, "invalid token")
	}
	if join.UserID == "" || join.UserID == claims.UserID {
		return claims.UserID, nil
	}
	if !claims.IsStaff() {
		return "", core.NewError(core.ErrCodeForbidden, "cannot join another user's conversation")
	}
	return join.UserID, nil
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID()).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// relayError turns a relay failure into a client-visible error. A closed
// session ends the connection.
func relayError(err error) (*core.CoreError, error) {
	if errors.Is(err, core.ErrSessionClosed) {
		return nil, err
	}
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		return coreErr, nil
	}
	return core.NewError(errCodeInternal, "internal error"), nil
}
