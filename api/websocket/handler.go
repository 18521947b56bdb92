package websocket

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/docflow/server/internal/errors"
	"codeberg.org/docflow/server/internal/logger"
	ws "codeberg.org/docflow/server/internal/websocket"
)

// handles websocket connections for a document room.
// rejected requests are still upgraded and then closed with a reason
func WebSocketHandler(deps Dependencies) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     deps.CheckOrigin,
	}

	accessTimeout := deps.AccessTimeout
	if accessTimeout <= 0 {
		accessTimeout = defaultAccessTimeout
	}

	return func(c *gin.Context) {
		rawID := c.Param("document_id")
		closeCode, reason := websocket.CloseNormalClosure, ""

		documentID, err := parseDocumentID(rawID)
		if err != nil {
			reason = reasonInvalidDocument
		}

		identity, err := deps.Resolver.Resolve(c.Request)
		if reason == "" && err != nil {
			reason = reasonUnauthenticated
		}

		if reason == "" {
			ctx, cancel := context.WithTimeout(c.Request.Context(), accessTimeout)
			allowed, err := deps.Access.UserHasAccess(ctx, identity.UserID, documentID)
			cancel()

			switch {
			case err != nil:
				logger.ErrorErr(err, "failed to check document access",
					"document_id", documentID,
					"user_id", identity.UserID,
				)
				closeCode, reason = websocket.CloseInternalServerErr, reasonUnavailable
			case !allowed:
				reason = reasonForbidden
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade connection", "document_id", rawID)
			return
		}

		if reason != "" {
			logger.Warn("websocket connection rejected",
				"document_id", rawID,
				"reason", reason,
				"close_code", closeCode,
				"ip", c.ClientIP(),
			)

			reject(conn, closeCode, reason)
			return
		}

		client := ws.NewClient(ws.GenerateClientID(), conn)
		session := ws.NewSession(deps.Hub, client, documentID, *identity, deps.Persister, deps.Session)

		if err := session.Open(context.Background()); err != nil {
			if stderrors.Is(err, ws.ErrHubClosed) {
				reject(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}

			logger.ErrorErr(err, "failed to open document session", "document_id", documentID)
			reject(conn, websocket.CloseInternalServerErr, "session unavailable")
			return
		}

		go client.WritePump()
		go func() {
			client.ReadPump(func(data []byte) {
				session.HandleFrame(data) //nolint:errcheck,gosec // frame errors are logged by the session
			})
			session.Close()
		}()
	}
}

func parseDocumentID(raw string) (int64, error) {
	if !errors.IsValidDocumentID(raw) {
		return 0, strconv.ErrSyntax
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrRange
	}

	return id, nil
}

func reject(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline) //nolint:errcheck,gosec // best effort close frame
	conn.Close()                                                                                    //nolint:errcheck,gosec // G104: cleanup
}
