// Package stream implements the Stream Server: a non-blocking TCP/TLS
// accept loop, a per-client MJPEG worker, an in-memory token store with
// TTL, and the single-writer/many-reader latest-frame slot.
package stream

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"iot-fabric/internal/errs"
	"iot-fabric/internal/logging"
	"iot-fabric/internal/vision/camera"
)

const (
	acceptIdleSleep = 100 * time.Millisecond
	frameInterval   = 33 * time.Millisecond
	jpegQuality     = 80
	boundary        = "mjpegstream"
)

// Config configures the Stream Server's listening socket and optional
// TLS termination.
type Config struct {
	Port     int
	HTTPS    bool
	CertPath string
	KeyPath  string
}

// Server is the vision service's Stream Server.
type Server struct {
	log    *logging.Logger
	cfg    Config
	frame  *LatestFrame
	tokens *TokenStore

	tlsConfig *tls.Config

	mu        sync.Mutex
	listener  *rawListener
	streaming bool

	clients  *clientList
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a Server bound to the shared latest-frame slot and
// token store owned by the vision service.
func New(log *logging.Logger, cfg Config, frame *LatestFrame, tokens *TokenStore) *Server {
	return &Server{
		log:     log.With("component", "stream"),
		cfg:     cfg,
		frame:   frame,
		tokens:  tokens,
		clients: newClientList(),
	}
}

// Tokens exposes the shared token store so the vision service can
// service request_token commands.
func (s *Server) Tokens() *TokenStore {
	return s.tokens
}

// Start allocates the listening socket with backlog 5 and launches the
// accept loop. If HTTPS is configured but the certificate/key fails to
// load, it falls back to plain TCP and returns that error for the
// caller to publish as a warning — the listener itself still starts.
func (s *Server) Start() error {
	ln, err := newRawListener(s.cfg.Port)
	if err != nil {
		return errs.New(errs.Transport, "binding stream listener", err)
	}

	var tlsErr error
	if s.cfg.HTTPS {
		cert, err := tls.LoadX509KeyPair(s.cfg.CertPath, s.cfg.KeyPath)
		if err != nil {
			tlsErr = errs.New(errs.TLS, "loading stream TLS certificate, falling back to plain TCP", err)
		} else {
			s.tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		}
	}

	s.mu.Lock()
	s.listener = ln
	s.streaming = true
	s.mu.Unlock()

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.acceptLoop()

	return tlsErr
}

// Running reports whether the accept loop is active.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.tokens.Janitor(time.Now())

		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, errWouldBlock) {
				time.Sleep(acceptIdleSleep)
				continue
			}
			s.log.Error("accept failed", "error", err)
			time.Sleep(acceptIdleSleep)
			continue
		}

		s.wg.Add(1)
		go s.serveClient(conn)
	}
}

func (s *Server) serveClient(conn net.Conn) {
	defer s.wg.Done()

	if s.tlsConfig != nil {
		conn = tls.Server(conn, s.tlsConfig)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	req, err := readRequest(reader)
	if err != nil {
		s.log.Warn("malformed stream request", "error", err)
		return
	}

	token := req.tokenParam()
	if !s.tokens.Validate(token, time.Now()) {
		writeUnauthorized(conn)
		return
	}

	if err := writeStreamHeaders(conn); err != nil {
		return
	}

	c := &client{conn: conn}
	s.clients.add(c)
	defer s.clients.remove(c)

	s.streamFrames(conn)
}

func writeUnauthorized(conn net.Conn) {
	body := "Invalid or expired token"
	resp := fmt.Sprintf("HTTP/1.1 401 Unauthorized\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	conn.Write([]byte(resp))
}

func writeStreamHeaders(conn net.Conn) error {
	headers := "HTTP/1.1 200 OK\r\n" +
		"Connection: close\r\n" +
		"Cache-Control: no-cache\r\n" +
		"Pragma: no-cache\r\n" +
		"Content-Type: multipart/x-mixed-replace; boundary=" + boundary + "\r\n\r\n"
	_, err := conn.Write([]byte(headers))
	return err
}

// streamFrames writes MJPEG parts at ~30fps until the server stops
// streaming or a write fails.
func (s *Server) streamFrames(conn net.Conn) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		if !s.Running() {
			return
		}

		f := s.frame.Load()
		if f.Empty() {
			continue
		}

		if err := writePart(conn, f); err != nil {
			return
		}
	}
}

func writePart(conn net.Conn, f camera.Frame) error {
	part := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(f.JPEG))
	if _, err := conn.Write([]byte(part)); err != nil {
		return err
	}
	if _, err := conn.Write(f.JPEG); err != nil {
		return err
	}
	_, err := conn.Write([]byte("\r\n"))
	return err
}

// Stop flips the streaming flag, stops the accept loop, closes every
// registered client socket, and joins every spawned goroutine.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()

		close(s.stopCh)
		if s.listener != nil {
			s.listener.Close()
		}
		n := s.clients.closeAll()
		s.log.Info("stream server stopping", "clients_closed", n)
	})
	s.wg.Wait()
}
