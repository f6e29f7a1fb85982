// Package peerlink defines the interface the sync engine needs from the
// out-of-scope peer-discovery/authentication layer: whether the sibling
// controller is currently reachable, and where on the peer a transfer
// should land. spec.md §1 lists this among the external collaborators
// specified only through the interface they expose to the core.
package peerlink

import (
	"context"
	"net"
	"time"
)

// Linker reports sibling reachability, in a form usable as
// control.Surface's PeerReachable hook, and resolves a local path into a
// peer-qualified destination for the transfer command line. The daemon
// currently wires PeerReachable from internal/role instead, so no Linker is
// consulted at run time.
type Linker interface {
	// Reachable reports whether the sibling controller currently answers.
	Reachable() bool
	// Resolve rewrites a local destination path into whatever form the
	// transfer tool needs to address the peer (e.g. prefixing a
	// user@host: rsync remote-shell spec). Entries whose DestPath is
	// already peer-qualified pass through unchanged.
	Resolve(localDestPath string) string
}

// TCPProbe is a Linker that considers the sibling reachable if a TCP dial
// to its address succeeds within Timeout, and resolves destinations as
// rsync remote-shell specs (user@host:path). This is a stub sufficient to
// exercise the engine end-to-end; the real redundancy/peer stack is out of
// scope per spec.md §1.
type TCPProbe struct {
	Host    string
	User    string
	Timeout time.Duration
}

// NewTCPProbe creates a TCPProbe with a 2s default timeout.
func NewTCPProbe(host, user string) *TCPProbe {
	return &TCPProbe{Host: host, User: user, Timeout: 2 * time.Second}
}

// Reachable implements Linker.
func (p *TCPProbe) Reachable() bool {
	if p.Host == "" {
		return false
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(context.Background(), "tcp", net.JoinHostPort(p.Host, "22"))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Resolve implements Linker.
func (p *TCPProbe) Resolve(localDestPath string) string {
	if p.Host == "" {
		return localDestPath
	}
	user := p.User
	if user == "" {
		user = "root"
	}
	return user + "@" + p.Host + ":" + localDestPath
}

// Static is a Linker fixed at construction, for tests and single-node
// development where no real peer exists.
type Static struct {
	IsReachable bool
	Prefix      string
}

// Reachable implements Linker.
func (s Static) Reachable() bool { return s.IsReachable }

// Resolve implements Linker.
func (s Static) Resolve(localDestPath string) string {
	return s.Prefix + localDestPath
}
