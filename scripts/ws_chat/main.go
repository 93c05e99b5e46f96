package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"

	"github.com/vovakirdan/dsolution-crm/internal/proto"
	"github.com/vovakirdan/dsolution-crm/scripts/internal/crmclient"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := flag.String("http", "http://localhost:3000", "HTTP base URL used for login")
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	email := flag.String("email", "", "account email (ignored when -token is set)")
	password := flag.String("password", "", "account password")
	token := flag.String("token", "", "JWT to join with")
	user := flag.String("user", "", "conversation to join; staff may name any customer id")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	if *token == "" && *email != "" {
		t, _, err := crmclient.Login(ctx, *baseURL, *email, *password)
		if err != nil {
			return err
		}
		*token = t
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

	fmt.Printf("Connected to %s in conversation %s\n", *addr, identity)
	fmt.Println("Type messages and press Enter to send. /history shows the conversation. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *crmclient.Conn) {
	for {
		f, err := conn.Read(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		fmt.Println(crmclient.Describe(f))
	}
}

func writeLoop(ctx context.Context, conn *crmclient.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			if text == "/history" {
				err = conn.Send(ctx, proto.InboundTypeHistory, struct{}{})
			} else {
				err = conn.Send(ctx, proto.InboundTypeSend, proto.SendData{Body: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
