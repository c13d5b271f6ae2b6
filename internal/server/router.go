// Package server hosts the webhook routers behind a host router.
package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/hostrouter"
)

// Config contains configuration for the Server
type Config struct {
	Addr string
	// Domains are the hosts the webhook routers answer on; "*" matches any.
	Domains []string
}

// DefaultConfig reads LISTEN_ADDR and the comma separated WALLETSYNC_DOMAIN
func DefaultConfig() *Config {
	cfg := &Config{Addr: ":8080", Domains: []string{"*"}}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if domains := os.Getenv("WALLETSYNC_DOMAIN"); domains != "" {
		cfg.Domains = nil
		for _, d := range strings.Split(domains, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Domains = append(cfg.Domains, d)
			}
		}
	}
	return cfg
}

type Server struct {
	*http.Server

	hostRouter hostrouter.Routes
	domains    []string
}

func New() *Server {
	return NewWithConfig(DefaultConfig())
}

func NewWithConfig(cfg *Config) *Server {
	hr := hostrouter.New()

	s := &Server{
		Server: &http.Server{
			Addr: cfg.Addr,
		},
		hostRouter: hr,
		domains:    cfg.Domains,
	}

	r := chi.NewRouter()
	r.Mount("/", hr)
	s.Server.Handler = r

	return s
}

// RegisterDomain maps one host to router.
func (s *Server) RegisterDomain(domain string, router chi.Router) {
	s.hostRouter.Map(domain, router)
}

// Register maps every configured domain to router.
func (s *Server) Register(router chi.Router) {
	for _, d := range s.domains {
		s.RegisterDomain(d, router)
	}
}
