package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sshclient/pkg/sshc"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// startServer runs a password only SSH server answering whoami, pwd, greet
// and fail, with SFTP on the local filesystem. It returns the listening port.
func startServer(t *testing.T) int {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == "alice" && string(password) == "secret" {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("access denied for %s", conn.User())
		},
	}
	config.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, aErr := l.Accept()
			if aErr != nil {
				return
			}
			go serveConn(conn, config)
		}
	}()

	return l.Addr().(*net.TCPAddr).Port
}

func serveConn(conn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer func() { _ = sshConn.Close() }()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		ch, chReqs, aErr := nc.Accept()
		if aErr != nil {
			continue
		}
		go func() {
			for req := range chReqs {
				switch req.Type {
				case "exec":
					var payload struct{ Command string }
					_ = ssh.Unmarshal(req.Payload, &payload)
					_ = req.Reply(true, nil)
					go runCanned(ch, payload.Command)
				case "subsystem":
					_ = req.Reply(true, nil)
					go func() {
						server, sErr := sftp.NewServer(ch)
						if sErr == nil {
							_ = server.Serve()
						}
						_ = ch.Close()
					}()
				default:
					_ = req.Reply(false, nil)
				}
			}
		}()
	}
}

func runCanned(ch ssh.Channel, command string) {
	status := uint32(0)
	switch command {
	case "whoami":
		_, _ = io.WriteString(ch, "alice\n")
	case "pwd":
		_, _ = io.WriteString(ch, "/home/alice\n")
	case "greet":
		_, _ = io.WriteString(ch, "hello\n")
		_, _ = io.WriteString(ch.Stderr(), "warning\n")
	case "fail":
		status = 3
	default:
		status = 127
	}
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
	_ = ch.Close()
}

func runConfig(port int, actions ...string) (*Config, *bytes.Buffer, *bytes.Buffer) {
	parsed, err := ParseActions(actions)
	if err != nil {
		panic(err)
	}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &Config{
		Verbose:   "INFO",
		Keepalive: time.Hour,
		Timeout:   5 * time.Second,
		Colorless: true,
		Target:    fmt.Sprintf("alice:secret@127.0.0.1:%d", port),
		Actions:   parsed,
		Stdout:    stdout,
		Stderr:    stderr,
	}, stdout, stderr
}

func TestRunClientReportsIdentity(t *testing.T) {
	port := startServer(t)
	cfg, stdout, _ := runConfig(port)

	require.NoError(t, RunClient(context.Background(), cfg))
	assert.Equal(t, "whoami: alice\npwd: /home/alice\n", stdout.String())
}

func TestRunClientActions(t *testing.T) {
	port := startServer(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("remote content\n"), 0640))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0750))
	require.NoError(t, os.Chmod(file, 0640))
	require.NoError(t, os.Chmod(filepath.Join(dir, "sub"), 0750))

	cfg, stdout, stderr := runConfig(port, "exec=greet", "ls="+dir, "cat="+file)
	require.NoError(t, RunClient(context.Background(), cfg))

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "whoami: alice\npwd: /home/alice\nhello\n"), out)
	assert.Equal(t, "warning\n", stderr.String())
	assert.True(t, strings.HasSuffix(out, "remote content\n"), out)

	var listed []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasSuffix(line, " notes.txt") || strings.HasSuffix(line, " sub") {
			listed = append(listed, line)
		}
	}
	require.Len(t, listed, 2)
	for _, line := range listed {
		if strings.HasSuffix(line, " sub") {
			assert.True(t, strings.HasPrefix(line, "drwxr-x---"), line)
		} else {
			assert.True(t, strings.HasPrefix(line, "-rw-r-----"), line)
		}
	}
}

func TestRunClientFailures(t *testing.T) {
	port := startServer(t)

	t.Run("non zero exit status", func(t *testing.T) {
		cfg, _, _ := runConfig(port, "exec=fail")
		err := RunClient(context.Background(), cfg)
		require.ErrorIs(t, err, sshc.ErrCommandFailed)

		var cmdErr *sshc.CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, 3, cmdErr.Status)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, _, _ := runConfig(port, "cat="+filepath.Join(t.TempDir(), "absent"))
		require.Error(t, RunClient(context.Background(), cfg))
	})

	t.Run("cat of a directory", func(t *testing.T) {
		cfg, _, _ := runConfig(port, "cat="+t.TempDir())
		err := RunClient(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})

	t.Run("wrong password", func(t *testing.T) {
		cfg, _, _ := runConfig(port)
		cfg.Target = fmt.Sprintf("alice:nope@127.0.0.1:%d", port)
		require.ErrorIs(t, RunClient(context.Background(), cfg), sshc.ErrConnectionFailed)
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg, _, _ := runConfig(port)
		cfg.Verbose = "LOUD"
		err := RunClient(context.Background(), cfg)
		require.ErrorIs(t, err, sshc.ErrConfiguration)

		var confErr *sshc.ConfigError
		require.ErrorAs(t, err, &confErr)
		assert.Equal(t, "log level", confErr.Field)
	})

	t.Run("malformed connection string", func(t *testing.T) {
		for _, target := range []string{"host:abc", "alice:secret@host:abc", "alice@"} {
			cfg, _, _ := runConfig(port)
			cfg.Target = target
			err := RunClient(context.Background(), cfg)
			require.ErrorIs(t, err, sshc.ErrConfiguration, target)
			assert.NotContains(t, err.Error(), "secret")
		}
	})
}

func TestRunClientAsksPassword(t *testing.T) {
	port := startServer(t)
	cfg, stdout, _ := runConfig(port)
	cfg.Target = fmt.Sprintf("alice@127.0.0.1:%d", port)
	cfg.AskPassword = true
	cfg.PasswordPrompt = func() (string, error) { return "secret", nil }

	require.NoError(t, RunClient(context.Background(), cfg))
	assert.Contains(t, stdout.String(), "whoami: alice")
}
