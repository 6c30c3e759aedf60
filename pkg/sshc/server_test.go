package sshc

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sshclient/pkg/connstr"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const (
	testUser     = "alice"
	testPassword = "secret"
)

// testServer is an in-process SSH server answering a handful of canned exec
// commands and serving SFTP on the local filesystem.
type testServer struct {
	listener   net.Listener
	config     *ssh.ServerConfig
	clientKey  ed25519.PrivateKey
	keepAlives atomic.Int32
	passwords  atomic.Int32
	publicKeys atomic.Int32
	stop       chan struct{}
	wg         sync.WaitGroup
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	clientPub, clientKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	authorized, err := ssh.NewPublicKey(clientPub)
	require.NoError(t, err)

	ts := &testServer{
		clientKey: clientKey,
		stop:      make(chan struct{}),
	}

	ts.config = &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			ts.passwords.Add(1)
			if conn.User() == testUser && string(password) == testPassword {
				return &ssh.Permissions{}, nil
			}
			return nil, io.ErrUnexpectedEOF
		},
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			ts.publicKeys.Add(1)
			if conn.User() == testUser && bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return &ssh.Permissions{}, nil
			}
			return nil, io.ErrUnexpectedEOF
		},
	}
	ts.config.AddHostKey(hostSigner)

	ts.listener, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ts.wg.Add(1)
	go ts.serve()

	t.Cleanup(ts.Stop)
	return ts
}

func (ts *testServer) Stop() {
	select {
	case <-ts.stop:
		return
	default:
	}
	close(ts.stop)
	_ = ts.listener.Close()
	ts.wg.Wait()
}

func (ts *testServer) port() int {
	return ts.listener.Addr().(*net.TCPAddr).Port
}

func (ts *testServer) passwordParams() connstr.Params {
	p := connstr.Params{Host: "127.0.0.1", Port: ts.port(), User: testUser}
	return p.WithPassword(testPassword)
}

func (ts *testServer) keyParams() connstr.Params {
	return connstr.Params{Host: "127.0.0.1", Port: ts.port(), User: testUser}
}

// writeClientKey stores the authorized client key as an OpenSSH PEM file.
func (ts *testServer) writeClientKey(t *testing.T) string {
	t.Helper()

	block, err := ssh.MarshalPrivateKey(ts.clientKey, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_test")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func (ts *testServer) serve() {
	defer ts.wg.Done()
	for {
		conn, err := ts.listener.Accept()
		if err != nil {
			return
		}
		go ts.handleConn(conn)
	}
}

func (ts *testServer) handleConn(netConn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, ts.config)
	if err != nil {
		_ = netConn.Close()
		return
	}
	defer func() { _ = sshConn.Close() }()

	go func() {
		for req := range reqs {
			if req.Type == "keepalive@openssh.com" {
				ts.keepAlives.Add(1)
			}
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}()

	go func() {
		<-ts.stop
		_ = sshConn.Close()
	}()

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, chReqs, aErr := nc.Accept()
		if aErr != nil {
			continue
		}
		go ts.handleSession(ch, chReqs)
	}
}

func (ts *testServer) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	for req := range reqs {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go ts.exec(ch, payload.Command)
		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go func() {
				server, err := sftp.NewServer(ch)
				if err == nil {
					_ = server.Serve()
				}
				_ = ch.Close()
			}()
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (ts *testServer) exec(ch ssh.Channel, command string) {
	status := 0
	name, arg, _ := strings.Cut(command, " ")

	switch name {
	case "whoami":
		_, _ = io.WriteString(ch, testUser+"\n")
	case "pwd":
		_, _ = io.WriteString(ch, "/home/"+testUser+"\n")
	case "exit":
		status, _ = strconv.Atoi(arg)
	case "sleep":
		d, _ := time.ParseDuration(arg)
		select {
		case <-time.After(d):
		case <-ts.stop:
		}
	case "cat":
		_, _ = io.Copy(ch, ch)
	case "stderr":
		_, _ = io.WriteString(ch, "out\n")
		_, _ = io.WriteString(ch.Stderr(), "err\n")
		status = 1
	case "noexit":
		_ = ch.Close()
		return
	case "hang":
		<-ts.stop
	default:
		_, _ = io.WriteString(ch.Stderr(), name+": command not found\n")
		status = 127
	}

	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
	_ = ch.Close()
}
