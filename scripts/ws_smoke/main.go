package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/dsolution-crm/internal/proto"
	"github.com/vovakirdan/dsolution-crm/scripts/internal/crmclient"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := flag.String("http", "http://localhost:3000", "HTTP base URL used for login")
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	email := flag.String("email", "", "account email (ignored when -token is set)")
	password := flag.String("password", "", "account password")
	token := flag.String("token", "", "JWT to join with")
	user := flag.String("user", "", "conversation to join (defaults to the token's account)")
	text := flag.String("text", "hello from smoke test", "message body to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *token == "" && *email != "" {
		t, id, err := crmclient.Login(ctx, *baseURL, *email, *password)
		if err != nil {
			return err
		}
		*token = t
		fmt.Printf("Logged in as %s\n", id)
	}

	conn, err := crmclient.Dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	identity, err := conn.Join(ctx, *user, *token)
	if err != nil {
		return err
	}
	fmt.Printf("Joined conversation %s\n", identity)

	if err := conn.Send(ctx, proto.InboundTypeSend, proto.SendData{Body: *text}); err != nil {
		return err
	}

	for {
		f, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Println(crmclient.Describe(f))

		if f.Error != nil {
			return fmt.Errorf("server error %s", f.Error.Code)
		}
		if f.Event != proto.EventNameMessage {
			continue
		}
		var msg proto.EventMessage
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return fmt.Errorf("unmarshal message: %w", err)
		}
		if msg.Body == *text {
			return nil
		}
	}
}
