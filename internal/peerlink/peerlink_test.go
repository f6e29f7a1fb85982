package peerlink

import "testing"

func TestStatic_ReachableAndResolve(t *testing.T) {
	l := Static{IsReachable: true, Prefix: "root@peer:"}
	if !l.Reachable() {
		t.Fatal("expected reachable")
	}
	if got := l.Resolve("/data/foo"); got != "root@peer:/data/foo" {
		t.Fatalf("unexpected resolved path: %s", got)
	}
}

func TestStatic_Unreachable(t *testing.T) {
	l := Static{IsReachable: false}
	if l.Reachable() {
		t.Fatal("expected unreachable")
	}
}

func TestTCPProbe_NoHostIsUnreachable(t *testing.T) {
	p := NewTCPProbe("", "")
	if p.Reachable() {
		t.Fatal("expected unreachable with empty host")
	}
	if got := p.Resolve("/data/foo"); got != "/data/foo" {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

func TestTCPProbe_ResolveDefaultsUser(t *testing.T) {
	p := NewTCPProbe("peer.local", "")
	if got := p.Resolve("/data/foo"); got != "root@peer.local:/data/foo" {
		t.Fatalf("unexpected resolved path: %s", got)
	}
}
