// Package connstr parses connection descriptors of the form
// [user[:password]@]host[:port].
//
// '@' and ':' are reserved delimiters: there is no percent-encoding, no
// quoting and no bracketed IPv6 syntax.
package connstr

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"sshclient/pkg/conf"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPort = errors.New("invalid port")
	ErrEmptyHost   = errors.New("empty host")
)

// Params holds the parsed connection parameters. A nil Password selects
// public key authentication.
type Params struct {
	Host     string
	Port     int
	User     string
	Password *string
}

// HasPassword reports whether password authentication is to be used.
func (p Params) HasPassword() bool {
	return p.Password != nil
}

// Addr returns the dialable host:port.
func (p Params) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// String renders user@host:port, never the password.
func (p Params) String() string {
	return fmt.Sprintf("%s@%s:%d", p.User, p.Host, p.Port)
}

// WithPassword returns a copy of p using password authentication.
func (p Params) WithPassword(password string) Params {
	p.Password = &password
	return p
}

// Parse parses s. The user defaults to the invoking account name and the
// port to 22.
func Parse(s string) (Params, error) {
	p := Params{Port: conf.DefaultPort}

	hostPart := s
	if userPart, rest, found := strings.Cut(s, "@"); found {
		hostPart = rest
		if name, password, hasPassword := strings.Cut(userPart, ":"); hasPassword {
			p.User = name
			p.Password = &password
		} else {
			p.User = userPart
		}
	} else {
		p.User = conf.CurrentUser()
	}

	p.Host = hostPart
	if i := strings.LastIndex(hostPart, ":"); i >= 0 {
		p.Host = hostPart[:i]
		port, err := strconv.Atoi(hostPart[i+1:])
		if err != nil || port < 1 || port > 65535 {
			return Params{}, errors.Wrapf(ErrInvalidPort, "%q", hostPart[i+1:])
		}
		p.Port = port
	}

	if p.Host == "" {
		return Params{}, ErrEmptyHost
	}

	return p, nil
}

// Redact masks the password of a connection string so it can be logged.
func Redact(s string) string {
	userPart, hostPart, found := strings.Cut(s, "@")
	if !found {
		return s
	}
	if name, _, hasPassword := strings.Cut(userPart, ":"); hasPassword {
		return name + ":***@" + hostPart
	}
	return s
}
