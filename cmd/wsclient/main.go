// Command wsclient is a terminal client for the chat WebSocket endpoint.
// Lines typed on stdin are sent to the room (or receiver) given by flags;
// lines starting with "/" are commands:
//
//	/join <room>  /leave <room>  /typing  /read <sender>  /history
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"chat-core/internal/models"
	"chat-core/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func main() {
	addr := flag.String("url", "ws://localhost:3001/ws", "websocket endpoint")
	token := flag.String("token", "", "access token")
	user := flag.String("user", "", "user id to mint a token for when -token is empty")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret used with -user")
	room := flag.String("room", "", "room to join and send to")
	receiver := flag.String("to", "", "receiver for direct messages")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if *token == "" {
		if *user == "" {
			log.Fatal().Msg("either -token or -user is required")
		}
		var err error
		*token, err = services.GenerateJWT(*secret, *user, *user, 24*time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("mint token")
		}
	}

	u, err := url.Parse(*addr)
	if err != nil {
		log.Fatal().Err(err).Msg("parse url")
	}
	q := u.Query()
	q.Set("access_token", *token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatal().Err(err).Int("status", resp.StatusCode).Msg("dial")
		}
		log.Fatal().Err(err).Msg("dial")
	}
	defer conn.Close()

	go readEvents(conn, log)

	if *room != "" {
		send(conn, models.Command{Event: models.CommandJoin, Room: *room}, log)
	}

	scanner := bufio.NewScanner(os.Stdin)
	n := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n++
		cmd := parseLine(line, *room, *receiver)
		cmd.RequestID = fmt.Sprintf("req-%d", n)
		send(conn, cmd, log)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func parseLine(line, room, receiver string) models.Command {
	if !strings.HasPrefix(line, "/") {
		return models.Command{Event: models.CommandSend, Room: room, Receiver: receiver, Text: line}
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return models.Command{}
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch fields[0] {
	case "join":
		return models.Command{Event: models.CommandJoin, Room: arg}
	case "leave":
		return models.Command{Event: models.CommandLeave, Room: arg}
	case "typing":
		return models.Command{Event: models.CommandTyping, Room: room, Receiver: receiver, IsTyping: true}
	case "read":
		if arg == "" {
			return models.Command{Event: models.CommandRead, Room: room}
		}
		return models.Command{Event: models.CommandRead, Sender: arg}
	case "history":
		return models.Command{Event: models.CommandHistory, Room: room, Receiver: receiver}
	default:
		return models.Command{Event: fields[0]}
	}
}

func send(conn *websocket.Conn, cmd models.Command, log zerolog.Logger) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(cmd); err != nil {
		log.Fatal().Err(err).Msg("write")
	}
}

func readEvents(conn *websocket.Conn, log zerolog.Logger) {
	for {
		var evt models.Event
		if err := conn.ReadJSON(&evt); err != nil {
			log.Error().Err(err).Msg("connection closed")
			os.Exit(1)
		}
		entry := log.Info().Str("event", evt.Event)
		if evt.RequestID != "" {
			entry = entry.Str("request_id", evt.RequestID)
		}
		if evt.Room != "" {
			entry = entry.Str("room", evt.Room)
		}
		switch {
		case evt.Message != nil:
			entry = entry.Str("from", evt.Message.SenderID).Str("text", evt.Message.Body)
		case evt.User != nil:
			entry = entry.Str("user", evt.User.ID)
		case evt.Error != nil:
			entry = entry.Str("kind", evt.Error.Kind).Str("error", evt.Error.Message)
		case len(evt.History) > 0:
			entry = entry.Int("messages", len(evt.History))
		}
		entry.Msg("")
	}
}
