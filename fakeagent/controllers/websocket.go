package controllers

import (
	"context"
	"encoding/json"
	"fakeagent/fakeagent/middlewares"
	"fakeagent/fakeagent/types"
	"fakeagent/fakeagent/utils/logging"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// wsRunRequest is the first message of a /run_ws connection. Token stands in
// for the Authorization header of the HTTP routes.
type wsRunRequest struct {
	Token  string        `json:"token,omitempty"`
	Thread *types.Thread `json:"thread"`
}

type wsSink struct {
	conn *websocket.Conn
}

func (s wsSink) Send(ctx context.Context, frame types.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func writeWSError(ctx context.Context, conn *websocket.Conn, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	conn.Write(ctx, websocket.MessageText, data)
}

// RunWebSocket reads one run request and streams its frames as JSON text
// messages. jwtSecret may be empty to skip token checks.
func (c *RunController) RunWebSocket(ctx context.Context, conn *websocket.Conn, jwtSecret string) {
	defer conn.Close(websocket.StatusInternalError, "internal error")

	typ, data, err := conn.Read(ctx)
	if err != nil {
		logging.ErrorLogger.Error("websocket read error", zap.Error(err))
		return
	}
	if typ != websocket.MessageText {
		conn.Close(websocket.StatusUnsupportedData, "unsupported data")
		return
	}

	var req wsRunRequest
	if err := json.Unmarshal(data, &req); err != nil {
		writeWSError(ctx, conn, "invalid json")
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid json")
		return
	}
	if jwtSecret != "" {
		if _, err := middlewares.ParseToken(jwtSecret, req.Token); err != nil {
			writeWSError(ctx, conn, "invalid token")
			conn.Close(websocket.StatusPolicyViolation, "invalid token")
			return
		}
	}
	if req.Thread == nil {
		writeWSError(ctx, conn, "missing thread")
		conn.Close(websocket.StatusPolicyViolation, "missing thread")
		return
	}
	if err := req.Thread.Validate(); err != nil {
		writeWSError(ctx, conn, err.Error())
		conn.Close(websocket.StatusPolicyViolation, "invalid thread")
		return
	}

	// the client only listens from here on; a disconnect cancels the run
	ctx = conn.CloseRead(ctx)

	if _, err := c.Stream(ctx, ModeWebSocket, *req.Thread, wsSink{conn: conn}); err != nil {
		logging.ErrorLogger.Error("websocket run aborted", zap.String("thread_id", req.Thread.ID), zap.Error(err))
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
