package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coregx/spamex/token"
)

// Tokens travel over a websocket as one JSON text message per token. The
// server ends the stream with a normal closure.

type wsSource struct {
	Source
	conn *websocket.Conn
}

// Dial connects to a websocket token server and returns a Source reading
// from it. Next blocks until the server sends the next token.
func Dial(ctx context.Context, url string) (Source, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: dialing %s: %w", url, err)
	}
	src := Async(context.Background(), func(ctx context.Context, emit Emit) error {
		for {
			_, bs, err := conn.ReadMessage()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("stream: reading message: %w", err)
			}
			if len(bs) == 0 {
				continue
			}
			var tok token.Token
			if err := json.Unmarshal(bs, &tok); err != nil {
				return fmt.Errorf("stream: decoding message: %w", err)
			}
			if err := emit(tok); err != nil {
				return err
			}
		}
	})
	return &wsSource{Source: src, conn: conn}, nil
}

// Close closes the connection, which unblocks the reader, then stops it.
func (s *wsSource) Close() error {
	err := s.conn.Close()
	s.Source.Close()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// Handler returns an http.Handler that streams the tokens produced by
// open to every websocket client that connects.
func Handler(open func(r *http.Request) (iter.Seq[token.Token], error)) http.Handler {
	var upgrader = websocket.Upgrader{} // use default options
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		toks, err := open(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := Send(conn, toks); err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})
}

// Send writes toks to conn, one text message per token.
func Send(conn *websocket.Conn, toks iter.Seq[token.Token]) error {
	for tok := range toks {
		js, err := json.Marshal(tok)
		if err != nil {
			return fmt.Errorf("stream: encoding %v: %w", tok, err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
			return fmt.Errorf("stream: writing message: %w", err)
		}
	}
	return nil
}
