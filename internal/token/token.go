// Package token resolves per-hostname bearer tokens from environment state.
//
// A token for host H is read from the variable named VarName(H): the hostname
// upper-cased, with every '.' and ':' replaced by '_', followed by "_TOKEN".
// For example github.com maps to GITHUB_COM_TOKEN.
package token

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidSource is returned when a source cannot be parsed as an absolute URL.
var ErrInvalidSource = errors.New("invalid source url")

const varSuffix = "_TOKEN"

var nameReplacer = strings.NewReplacer(".", "_", ":", "_")

// VarName derives the environment variable name holding the token for hostname.
func VarName(hostname string) string {
	return nameReplacer.Replace(strings.ToUpper(hostname)) + varSuffix
}

// Lookuper reads a single variable from environment state.
type Lookuper interface {
	LookupEnv(key string) (string, bool)
}

// OSEnv reads from the process environment.
type OSEnv struct{}

// LookupEnv implements Lookuper using os.LookupEnv.
func (OSEnv) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv is a fixed environment, mostly for tests.
type MapEnv map[string]string

// LookupEnv implements Lookuper.
func (m MapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Chain consults each Lookuper in order and returns the first hit, even if
// its value is empty. An OS environment placed first therefore wins over a
// dotenv file placed after it.
type Chain []Lookuper

// LookupEnv implements Lookuper.
func (c Chain) LookupEnv(key string) (string, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if v, ok := l.LookupEnv(key); ok {
			return v, true
		}
	}
	return "", false
}

// Token is the outcome of a resolution. Value is empty unless Present is set.
type Token struct {
	Value   string
	VarName string
	Host    string
	Present bool
}

// Resolver maps a source URL to an optional bearer token.
type Resolver struct {
	env    Lookuper
	logger *zap.Logger
}

// NewResolver builds a Resolver. A nil env reads the process environment.
func NewResolver(env Lookuper, logger *zap.Logger) *Resolver {
	if env == nil {
		env = OSEnv{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{env: env, logger: logger}
}

// Resolve looks up the token for the hostname of source. Unset and empty
// variables both resolve to an absent token.
func (r *Resolver) Resolve(source string) (Token, error) {
	host, err := Hostname(source)
	if err != nil {
		return Token{}, err
	}
	name := VarName(host)
	tok := Token{VarName: name, Host: host}
	if v, ok := r.env.LookupEnv(name); ok && v != "" {
		tok.Value = v
		tok.Present = true
		r.logger.Info("using token", zap.String("env_var", name), zap.String("host", host))
		return tok, nil
	}
	r.logger.Info("not using a token", zap.String("env_var", name), zap.String("host", host))
	return tok, nil
}

// Hostname extracts the hostname (without port) from an absolute URL.
// IPv6 literals lose their brackets, so http://[::1]:8080/x yields "::1"
// and its token variable is __1_TOKEN.
func Hostname(source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidSource, source, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing scheme or host", ErrInvalidSource, source)
	}
	return u.Hostname(), nil
}
