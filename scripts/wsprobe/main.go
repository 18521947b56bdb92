package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/docflow/server/internal/logger"
)

// connects to a document room, announces a cursor, sends one edit and prints every frame
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run ./scripts/wsprobe <document_id> <token> [host]")
		fmt.Println("Example: go run ./scripts/wsprobe 1 $TEST_TOKEN localhost:8080")
		os.Exit(1)
	}

	documentID := os.Args[1]
	token := os.Args[2]

	host := "localhost:8080"
	if len(os.Args) > 3 {
		host = os.Args[3]
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     host,
		Path:     "/ws/documents/" + documentID,
		RawQuery: url.Values{"token": {token}}.Encode(),
	}

	fmt.Printf("Connecting to %s\n", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.FatalErr(err, "dial failed")
	}
	defer c.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				fmt.Println("read:", err)
				return
			}
			fmt.Printf("Received: %s\n", message)
		}
	}()

	time.Sleep(500 * time.Millisecond)

	frames := []map[string]any{
		{
			"type":      "cursor_connect",
			"cursor_id": "probe-cursor",
			"user_id":   "probe",
			"username":  "wsprobe",
		},
		{
			"type":      "document_update",
			"content":   map[string]any{"title": "probe", "body": "hello from wsprobe"},
			"sender_id": "wsprobe",
			"user_id":   "probe",
			"username":  "wsprobe",
		},
	}

	for _, frame := range frames {
		data, _ := json.Marshal(frame)
		fmt.Printf("Sending: %s\n", data)

		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			fmt.Println("write:", err)
			return
		}
	}

	select {
	case <-done:
		return
	case <-interrupt:
		fmt.Println("\nInterrupt received, closing connection...")

		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			fmt.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
