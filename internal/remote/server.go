// ABOUTME: WebSocket remote control server for the playback engine
// ABOUTME: Manages client connections, dispatches commands, broadcasts status
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/player"
)

// Config holds server configuration.
type Config struct {
	Port int
	Name string
}

// Server exposes the engine's transport over WebSocket. Every connected
// client receives a status frame after each command and on every engine
// state change forwarded through Broadcast.
type Server struct {
	config Config
	engine *player.Engine

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan Message
}

// New creates a server bound to the engine.
func New(config Config, engine *player.Engine) *Server {
	s := &Server{
		config: config,
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network deployments only; non-browser clients
				// send no Origin header.
				return true
			},
		},
		mux:      http.NewServeMux(),
		clients:  make(map[string]*client),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until Stop is called. Blocking.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Remote control listening on %s", addr)

	s.httpServer = &http.Server{Addr: addr, Handler: s.mux}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Remote control shutting down...")
	case err := <-errChan:
		log.Printf("Remote control server error: %v", err)
		serverErr = err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Remote control shutdown error: %v", err)
	}

	s.closeClients()
	s.wg.Wait()

	if serverErr != nil {
		return fmt.Errorf("remote control server failed: %w", serverErr)
	}
	return nil
}

// Stop signals Start to shut down. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Broadcast sends a status frame to every connected client. Slow clients
// drop frames rather than stall the caller.
func (s *Server) Broadcast(st player.Status) {
	msg, err := statusMessage(st)
	if err != nil {
		log.Printf("Error encoding status: %v", err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		select {
		case c.sendChan <- msg:
		default:
		}
	}
}

func statusMessage(st player.Status) (Message, error) {
	payload := StatusPayload{
		State:    st.State.String(),
		Playing:  st.IsPlaying,
		Position: st.Position,
		Duration: st.Duration,
		Volume:   st.Volume,
	}
	if st.Track != uuid.Nil {
		payload.Track = st.Track.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: TypeStatus, Payload: data}, nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan Message, 16),
	}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	log.Printf("Remote client connected from %s", r.RemoteAddr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writeLoop(c)
	}()

	// Greet with the current state so the client can render immediately.
	if msg, err := statusMessage(s.engine.Status()); err == nil {
		c.sendChan <- msg
	}

	s.readLoop(c)

	s.clientsMu.Lock()
	delete(s.clients, c.id)
	s.clientsMu.Unlock()

	close(c.sendChan)
	log.Printf("Remote client disconnected")
}

func (s *Server) readLoop(c *client) {
	defer c.conn.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		s.dispatch(c, msg)
	}
}

func (s *Server) writeLoop(c *client) {
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// dispatch runs one command against the engine and answers with either a
// fresh status frame or an error frame.
func (s *Server) dispatch(c *client, msg Message) {
	var err error

	switch msg.Type {
	case TypePlay:
		err = s.engine.Play()
	case TypePause:
		s.engine.Pause()
	case TypeStop:
		s.engine.Stop()
	case TypeSeek:
		var p SeekPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = s.engine.Seek(p.Position)
		}
	case TypeVolume:
		var p VolumePayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			s.engine.SetVolume(p.Volume)
		}
	case TypeStatus:
		// Fall through to the status reply below.
	default:
		err = fmt.Errorf("unknown command %q", msg.Type)
	}

	if err != nil {
		log.Printf("Remote command %s failed: %v", msg.Type, err)
		s.sendError(c, msg.Type, err)
		return
	}

	if reply, err := statusMessage(s.engine.Status()); err == nil {
		select {
		case c.sendChan <- reply:
		default:
		}
	}
}

func (s *Server) sendError(c *client, command string, cmdErr error) {
	data, err := json.Marshal(ErrorPayload{Command: command, Error: cmdErr.Error()})
	if err != nil {
		return
	}
	select {
	case c.sendChan <- Message{Type: TypeError, Payload: data}:
	default:
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for id, c := range s.clients {
		c.conn.Close()
		delete(s.clients, id)
	}
}
