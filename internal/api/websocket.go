package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "regdraft/internal/errors"
	"regdraft/internal/selection"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message types on the selection channel.
const (
	MsgAction   = "action"
	MsgPing     = "ping"
	MsgPong     = "pong"
	MsgSnapshot = "snapshot"
	MsgTarget   = "target"
	MsgError    = "error"
)

// selectionMessage is sent by the editor. Selection events use the event
// kind as type; "action" is sent from the mouse-down handler of an edit button.
type selectionMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	SectionID string `json:"section_id,omitempty"`
}

type selectionReply struct {
	Type     string              `json:"type"`
	Snapshot *selection.Snapshot `json:"snapshot,omitempty"`
	Target   *selection.Target   `json:"target,omitempty"`
	Code     string              `json:"code,omitempty"`
	Message  string              `json:"message,omitempty"`
}

func (s *Server) selectionSocket(c *gin.Context) {
	session := strings.TrimSpace(c.Query("session"))
	if session == "" {
		failure(c, http.StatusBadRequest, CodeBadRequest, "session query parameter is required", nil)
		return
	}
	if s.selections == nil {
		failure(c, http.StatusServiceUnavailable, CodeInternal, "selection tracking is not configured", nil)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithField("session", session)
	log.Debug("selection channel opened")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go keepAlive(ctx, conn)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("selection channel read error")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg selectionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Debug("ignoring malformed selection message")
			continue
		}
		reply, ok := s.handleSelection(ctx, session, msg)
		if !ok {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.WithError(err).Warn("selection channel write failed")
			break
		}
	}
	log.Debug("selection channel closed")
}

// handleSelection applies one message to the session tracker and returns
// the reply to send, if any.
func (s *Server) handleSelection(ctx context.Context, session string, msg selectionMessage) (selectionReply, bool) {
	tracker := s.selections.Tracker(session)

	switch msg.Type {
	case string(selection.EventSelectionChange), string(selection.EventMouseUp), string(selection.EventMouseDown):
		tracker.Record(selection.Event{Kind: selection.EventKind(msg.Type), Text: msg.Text})
		return selectionReply{}, false
	case MsgPing:
		return selectionReply{Type: MsgPong}, true
	case MsgAction:
	default:
		s.log.WithFields(logrus.Fields{"session": session, "type": msg.Type}).Debug("ignoring unknown selection message")
		return selectionReply{}, false
	}

	snap := tracker.CaptureAtActionTime(msg.Text)
	if msg.SectionID == "" {
		return selectionReply{Type: MsgSnapshot, Snapshot: &snap}, true
	}

	content, err := s.store.GetSectionContent(ctx, msg.SectionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return selectionReply{Type: MsgError, Code: CodeNotFound, Message: err.Error()}, true
		}
		s.log.WithError(err).Error("selection channel section lookup failed")
		return selectionReply{Type: MsgError, Code: CodeInternal, Message: "An internal error occurred"}, true
	}

	target, err := tracker.Resolve(content)
	if err != nil {
		return selectionReply{Type: MsgError, Snapshot: &snap, Code: CodeSelectionUnavailable, Message: "Select text or place the cursor in a section"}, true
	}
	reply := selectionReply{Type: MsgTarget, Snapshot: &snap, Target: &target}
	if target.Rejected {
		reply.Code = CodeValidationRejected
		reply.Message = "Selected text was not found in the section; the whole section will be edited"
	}
	return reply, true
}

func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
