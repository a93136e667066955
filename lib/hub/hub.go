// Copyright (C) 2023 The Gala Authors.
//
// This file is part of Gala.
//
// Gala is free software: you can redistribute it and/or modify it under the
// terms of the GNU Affero General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.
//
// Gala is distributed in the hope that it will be useful, but WITHOUT ANY
// WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for
// more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with Gala.  If not, see <https://www.gnu.org/licenses/>.

// Package hub pushes change notifications to connected clients over
// websockets so screens and widgets can re-render without polling.
// Clients are passive listeners; apart from auth and ping they send
// nothing.
package hub

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/edmundjohnson/gala/log"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type Authenticator interface {
	Authenticate(token string) bool
}

type Message struct {
	body []byte
}

type Hub struct {
	nextId     int64
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
}

type Conn net.Conn

type Client struct {
	id   int64
	hub  *Hub
	conn Conn
	send chan Message
}

func NewHub() *Hub {
	return &Hub{
		nextId:     1,
		broadcast:  make(chan Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Broadcast queues body for delivery to every authenticated client.
func (h *Hub) Broadcast(body []byte) {
	h.broadcast <- Message{body: body}
}

func (h *Hub) done(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			client.id = h.nextId
			h.nextId++
			log.Printf("register: clients %d\n", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.done(client)
			}
			log.Printf("unregister: clients %d\n", len(h.clients))
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow client, drop it
					h.done(client)
				}
			}
		}
	}
}

func (h *Hub) Handle(auth Authenticator, w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Println(err)
		return
	}

	c := &Client{
		id:   0,
		hub:  h,
		conn: conn,
		send: make(chan Message, 3),
	}

	go c.reader(auth)
	go c.writer()
}

func (c *Client) ping() error {
	err := wsutil.WriteServerMessage(c.conn, ws.OpPing, []byte{})
	return err
}

func (c *Client) reader(auth Authenticator) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	// auth is required first
	c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	msg, err := wsutil.ReadClientText(c.conn)
	if err != nil {
		// timeout or error
		log.Println(err)
		return
	}
	cmd := strings.Split(string(msg), " ")
	if cmd[0] != "/auth" || len(cmd) != 2 {
		// only auth is allowed
		log.Println("not /auth")
		return
	}
	if auth.Authenticate(cmd[1]) == false {
		log.Println("bad token")
		return
	}

	// register authenticated client
	c.hub.register <- c

	for {
		c.conn.SetReadDeadline(time.Now().Add(45 * time.Second))
		msg, err := wsutil.ReadClientText(c.conn)
		if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
			// keep alive with pings
			err = c.ping()
			if err != nil {
				log.Println(err)
				return
			}
			continue
		} else if err != nil {
			log.Println(err)
			return
		}
		if len(msg) > 0 && msg[0] == byte('/') {
			cmd := strings.Split(string(msg[1:]), " ")
			switch cmd[0] {
			case "ping":
				if len(cmd) == 2 {
					// "/ping time"
					pong := fmt.Sprintf("/pong %s", cmd[1])
					c.send <- Message{body: []byte(pong)}
				}
			default:
				log.Printf("ignore '%s'\n", cmd[0])
			}
		}
		// anything else from a listener is ignored
	}
}

func (c *Client) writer() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			return
		}

		err := wsutil.WriteServerText(c.conn, message.body)
		if err != nil {
			log.Println(err)
			return
		}

		// drain the queue
		queued := len(c.send)
		for i := 0; i < queued; i++ {
			message = <-c.send
			err := wsutil.WriteServerText(c.conn, message.body)
			if err != nil {
				log.Println(err)
				return
			}
		}
	}
}
