package ssh

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/spire/internal/util/keygen"
)

// testServer is an in-process SSH server that runs exec requests with the
// local /bin/sh.
type testServer struct {
	Host      string
	Port      int
	HostKey   ssh.PublicKey
	ClientKey []byte
	listener  net.Listener
	mu        sync.Mutex
	commands  []string
}

// Commands returns the exec requests received so far.
func (s *testServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no POSIX shell available")
	}

	clientKeys, err := keygen.GenerateEd25519KeyPair("client")
	if err != nil {
		t.Fatalf("failed to generate client key: %v", err)
	}
	authorized, _, _, _, err := ssh.ParseAuthorizedKey(clientKeys.PublicKey)
	if err != nil {
		t.Fatalf("failed to parse client key: %v", err)
	}

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("failed to create host signer: %v", err)
	}

	serverConfig := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unknown public key")
		},
	}
	serverConfig.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	host, portStr, _ := net.SplitHostPort(listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	srv := &testServer{
		Host:      host,
		Port:      port,
		HostKey:   hostSigner.PublicKey(),
		ClientKey: clientKeys.PrivateKey,
		listener:  listener,
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.serveConn(conn, serverConfig)
		}
	}()

	return srv
}

func (s *testServer) serveConn(conn net.Conn, config *ssh.ServerConfig) {
	defer func() { _ = conn.Close() }()
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "only sessions are supported")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.serveSession(channel, requests)
	}
}

func (s *testServer) serveSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer func() { _ = channel.Close() }()

	for req := range requests {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			continue
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		cmd := exec.Command("sh", "-c", payload.Command) // #nosec G204
		cmd.Stdin = channel
		cmd.Stdout = channel
		cmd.Stderr = channel.Stderr()

		status := 0
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				status = exitErr.ExitCode()
			} else {
				status = 255
			}
		}

		_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
		return
	}
}

// clientConfig returns a client Config pointing at the server.
func (s *testServer) clientConfig() *Config {
	return &Config{
		Host:            s.Host,
		Port:            s.Port,
		User:            "root",
		PrivateKey:      s.ClientKey,
		MaxRetries:      -1,
		HostKeyCallback: ssh.FixedHostKey(s.HostKey),
	}
}

func (s *testServer) String() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
