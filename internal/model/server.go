package model

import (
	"context"
	"net"

	"github.com/google/uuid"
)

// SecurityLayer abstracts how the server's listener is created, so TLS and
// plain deployments share one startup path.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a startable, stoppable network server.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}

// Identity is the caller identity supplied by the external auth
// collaborator. The core trusts it verbatim.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
}
