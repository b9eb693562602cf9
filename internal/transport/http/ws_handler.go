package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/alias"
	"github.com/courseconnect/courseconnect-server/internal/auth"
	"github.com/courseconnect/courseconnect-server/internal/chat"
	"github.com/courseconnect/courseconnect-server/internal/proto"
	"github.com/courseconnect/courseconnect-server/internal/store"
)

// WSHandler runs the course chat socket. Admission is resolved entirely
// before the upgrade: an unauthenticated or unenrolled peer never holds a
// live socket.
type WSHandler struct {
	authService *auth.Service
	courses     store.CourseStore
	chatService *chat.Service
	allocator   *alias.Allocator
	log         *zerolog.Logger

	historyLimit int
	idleTimeout  time.Duration
	sendBuffer   int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(
	authService *auth.Service,
	courses store.CourseStore,
	chatService *chat.Service,
	allocator *alias.Allocator,
	historyLimit int,
	idleTimeout time.Duration,
	sendBuffer int,
	logger *zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		authService:  authService,
		courses:      courses,
		chatService:  chatService,
		allocator:    allocator,
		log:          logger,
		historyLimit: historyLimit,
		idleTimeout:  idleTimeout,
		sendBuffer:   sendBuffer,
	}
}

// wsToken pulls the credential from the query string or the Authorization
// header. Browsers cannot set headers on websocket dials, so the query
// parameter is the primary path.
func wsToken(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return ""
}

// Handle validates the join, upgrades, and runs the session.
// GET /ws/courses/:id
func (h *WSHandler) Handle(c *gin.Context) {
	r := c.Request

	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		c.Status(stdhttp.StatusBadRequest)
		return
	}

	userID, err := h.authService.ResolveUserID(wsToken(r))
	if err != nil {
		c.String(stdhttp.StatusUnauthorized, "Invalid user token")
		return
	}

	courseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || courseID <= 0 {
		c.Status(stdhttp.StatusBadRequest)
		return
	}

	course, err := h.courses.GetCourseByID(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.String(stdhttp.StatusNotFound, "Course not found")
			return
		}
		h.log.Error().Err(err).Int64("course_id", courseID).Msg("course lookup failed")
		c.Status(stdhttp.StatusInternalServerError)
		return
	}

	enrolled, err := h.courses.IsEnrolled(r.Context(), userID, course.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Int64("course_id", course.ID).Msg("enrollment check failed")
		c.Status(stdhttp.StatusInternalServerError)
		return
	}
	if !enrolled {
		c.String(stdhttp.StatusForbidden, "You are not enrolled in this course")
		return
	}

	anonName, err := h.allocator.Resolve(r.Context(), userID, course.ID)
	if err != nil {
		if errors.Is(err, alias.ErrNamePoolExhausted) {
			c.String(stdhttp.StatusServiceUnavailable, "No anonymous names available, try again later")
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Int64("course_id", course.ID).Msg("alias resolution failed")
		c.Status(stdhttp.StatusInternalServerError)
		return
	}

	// Validation passed; only now do we allocate socket resources.
	ws, err := websocket.Accept(c.Writer, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")

	conn := chat.NewConnection(userID, course.ID, anonName, h.sendBuffer)

	// History is queued before joining the room so a message broadcast
	// during the join can only arrive live, never both replayed and live.
	h.replayHistory(r.Context(), conn)

	registry := h.chatService.Registry()
	registry.Join(conn)
	// Deregistration must happen on every exit path, however abrupt.
	defer registry.Leave(conn)
	defer conn.Shutdown("handler exit")

	h.log.Info().
		Int64("user_id", userID).
		Int64("course_id", course.ID).
		Str("anonymous_name", anonName).
		Msg("chat connection live")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, ws, conn)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, ws, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	conn.Shutdown("closing")
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
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
			h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("ws connection closed with error")
		}
	}

	ws.Close(status, reason)
}

// replayHistory delivers recent room messages to a freshly joined client.
func (h *WSHandler) replayHistory(ctx context.Context, conn *chat.Connection) {
	messages, err := h.chatService.History(ctx, conn.CourseID(), h.historyLimit)
	if err != nil {
		h.log.Warn().Err(err).Int64("course_id", conn.CourseID()).Msg("history replay failed")
		return
	}
	if len(messages) == 0 {
		return
	}
	if err := conn.Deliver(&chat.Event{Kind: chat.EventHistory, Messages: messages}); err != nil {
		h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("history delivery failed")
	}
}

func (h *WSHandler) readLoop(ctx context.Context, ws *websocket.Conn, conn *chat.Connection) error {
	for {
		readCtx := ctx
		var cancel context.CancelFunc = func() {}
		if h.idleTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, h.idleTimeout)
		}
		_, data, err := ws.Read(readCtx)
		cancel()
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			// A malformed frame never terminates an otherwise-healthy
			// session; signal it best-effort and keep reading.
			h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("malformed inbound frame dropped")
			h.writeError(ctx, ws, "bad_frame", "malformed frame")
			continue
		}

		if inbound.Type != proto.InboundTypeMessage {
			h.writeError(ctx, ws, "bad_frame", "unknown frame type")
			continue
		}

		if _, err := h.chatService.Post(ctx, conn, inbound.Content); err != nil {
			switch {
			case errors.Is(err, chat.ErrEmptyMessage):
				// Dropped without persisting or broadcasting.
			default:
				h.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("failed to post chat message")
				h.writeError(ctx, ws, "transient_io", "message not delivered")
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *chat.Connection) error {
	for {
		select {
		case ev := <-conn.Events():
			if ev == nil {
				return nil
			}
			if err := wsjson.Write(ctx, ws, outboundFromEvent(ev)); err != nil {
				return err
			}
		case <-conn.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, ws *websocket.Conn, code, msg string) {
	out := proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
	if err := wsjson.Write(ctx, ws, out); err != nil {
		h.log.Debug().Err(err).Msg("failed to write error frame")
	}
}
