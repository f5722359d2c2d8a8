package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"investorportal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// statusFrame is pushed back to the editing client after each autosave tick.
type statusFrame struct {
	Type   string                 `json:"type"`
	Status service.AutosaveStatus `json:"status"`
}

// ServeDraftWs hosts one draft editing session: the client streams its form
// state as JSON frames, the server autosaves it on an interval and reports
// the saving indicator back. One autosaver per connection; nothing is shared
// across sessions.
func ServeDraftWs(c *gin.Context, svc service.SubmissionService, secret []byte, interval time.Duration) {
	claims, ok := authenticate(c, secret)
	if !ok {
		log.Println("Draft session rejected: invalid or missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	investorID, _ := claims["sub"].(string)
	if investorID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("Draft session upgrade failed:", err)
		return
	}

	saver := service.NewAutosaver(svc, investorID, interval)
	ctx, cancel := context.WithCancel(context.Background())
	go saver.Run(ctx)

	// Single writer: only this goroutine touches the connection for writes.
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				raw, marshalErr := json.Marshal(statusFrame{Type: "autosave", Status: saver.Status()})
				if marshalErr != nil {
					continue
				}
				if writeErr := conn.WriteMessage(websocket.TextMessage, raw); writeErr != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("draft session read error: %v", readErr)
			}
			break
		}

		var req service.DraftRequest
		if unmarshalErr := json.Unmarshal(raw, &req); unmarshalErr != nil {
			log.Printf("draft session: dropping malformed frame: %v", unmarshalErr)
			continue
		}
		saver.Update(req)
	}

	cancel()

	// Best-effort final save so closing the tab does not lose edits.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	if flushErr := saver.Flush(flushCtx); flushErr != nil {
		log.Printf("draft session flush failed: %v", flushErr)
	}

	_ = conn.Close()
}
