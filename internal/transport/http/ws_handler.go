package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/auth"
	"live-trivia-service/internal/domain"

	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.RoomService
	auth     *auth.HostAuthenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService, authenticator *auth.HostAuthenticator) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

var errInvalidPayload = errors.New("invalid payload")

type errorPayload struct {
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
}

type roomRefPayload struct {
	Code string `json:"code"`
}

type joinPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type answerPayload struct {
	Code        string `json:"code"`
	ChoiceIndex int    `json:"choiceIndex"`
}

type nextAck struct {
	Code  string `json:"code"`
	Ended bool   `json:"ended"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the room
// use cases. Hosts authenticate with a token query parameter; participants
// connect anonymously and are identified by a per-connection ID.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	isHost := false
	if token := r.URL.Query().Get("token"); token != "" {
		if err := h.auth.Verify(token); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		isHost = true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID, err := newConnID()
	if err != nil {
		log.Printf("conn id: %v", err)
		return
	}

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// One subscription per room this connection touched. Cancels run on
	// connection teardown.
	cancels := make(map[string]func())
	subscribeRoom := func(code string) error {
		if _, ok := cancels[code]; ok {
			return nil
		}
		events, cancel, err := h.service.Subscribe(code)
		if err != nil {
			return err
		}
		cancels[code] = cancel
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return nil
	}

	defer func() {
		h.service.Disconnect(connID)
		for _, cancel := range cancels {
			cancel()
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(inbound, connID, isHost, send, subscribeRoom)
	}

	close(closeSignals)
	forwarders.Wait()
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(inbound inboundMessage, connID string, isHost bool, send chan<- outboundMessage[any], subscribeRoom func(string) error) {
	fail := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Op: inbound.Type, Message: err.Error()}}
	}
	ack := func(payload any) {
		send <- outboundMessage[any]{Type: inbound.Type + ":ack", Payload: payload}
	}

	switch inbound.Type {
	case "host:create":
		if !isHost {
			fail(domain.ErrHostRequired)
			return
		}
		code, err := h.service.CreateRoom(connID)
		if err != nil {
			fail(err)
			return
		}
		if err := subscribeRoom(code); err != nil {
			fail(err)
			return
		}
		ack(roomRefPayload{Code: code})

	case "host:start":
		var payload roomRefPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload)
			return
		}
		if err := h.service.Start(payload.Code, connID); err != nil {
			fail(err)
			return
		}
		ack(payload)

	case "host:reveal":
		var payload roomRefPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload)
			return
		}
		if err := h.service.Reveal(payload.Code, connID); err != nil {
			fail(err)
			return
		}
		ack(payload)

	case "host:next":
		var payload roomRefPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload)
			return
		}
		ended, err := h.service.Next(payload.Code, connID)
		if err != nil {
			fail(err)
			return
		}
		ack(nextAck{Code: payload.Code, Ended: ended})

	case "player:join":
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload)
			return
		}
		current, err := h.service.Join(payload.Code, connID, payload.Name)
		if err != nil {
			fail(err)
			return
		}
		if err := subscribeRoom(payload.Code); err != nil {
			fail(err)
			return
		}
		ack(roomRefPayload{Code: payload.Code})
		if current != nil {
			// Mid-question join: replay the announcement so the client can
			// still answer within the remaining window.
			send <- outboundMessage[any]{Type: domain.EventQuestionStart, Payload: *current}
		}

	case "player:answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail(errInvalidPayload)
			return
		}
		result, err := h.service.SubmitAnswer(payload.Code, connID, payload.ChoiceIndex)
		if err != nil {
			fail(err)
			return
		}
		ack(result)

	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Op: inbound.Type, Message: "unsupported message type"}}
	}
}

func newConnID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
