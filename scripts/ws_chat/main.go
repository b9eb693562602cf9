// Interactive course chat client for manual testing. Dials the chat socket
// with a JWT and relays stdin lines into the room.
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
	"github.com/coder/websocket/wsjson"

	"github.com/courseconnect/courseconnect-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080", "server base address")
	course := flag.Int64("course", 1, "course id to join")
	token := flag.String("token", "", "JWT from /api/auth/login")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("a -token is required; get one from /api/auth/login")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	url := fmt.Sprintf("%s/ws/courses/%d?token=%s", *addr, *course, *token)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to course %d\n", *course)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

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

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
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

		switch outbound.Type {
		case proto.OutboundTypeMessage:
			if outbound.Message != nil {
				printMessage(*outbound.Message)
			}
		case proto.OutboundTypeHistory:
			for _, msg := range outbound.Messages {
				printMessage(msg)
			}
			fmt.Printf("--- %d earlier messages ---\n", len(outbound.Messages))
		case proto.OutboundTypeError:
			if outbound.Error != nil {
				log.Printf("server error: %s (%s)", outbound.Error.Msg, outbound.Error.Code)
			}
		default:
			fmt.Printf("type=%s frame=%+v\n", outbound.Type, outbound)
		}
	}
}

func printMessage(msg proto.ChatMessage) {
	fmt.Printf("[%s] %s: %s\n", msg.SentAt.Format("15:04:05"), msg.SenderAnonymousName, msg.Content)
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
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

			in := proto.Inbound{Type: proto.InboundTypeMessage, Content: text}
			if err := wsjson.Write(ctx, conn, in); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
