package cli

import (
	"path/filepath"
	"testing"

	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/role"
)

// fakeRoleProvider is a role.Provider with a fixed SiblingReachable value and
// no change notifications, for exercising openControl's PeerReachable wiring
// without a sidecar file on disk.
type fakeRoleProvider struct {
	reachable bool
}

func (f fakeRoleProvider) Current() (role.State, error) {
	return role.State{SiblingReachable: f.reachable}, nil
}

func (f fakeRoleProvider) Changes() <-chan role.State { return nil }

func TestStatusPath_SiblingsStateFile(t *testing.T) {
	cfg := daemonconfig.Config{StatePath: "/var/lib/bmc-data-sync/state.json"}
	got := statusPath(cfg)
	want := filepath.Join("/var/lib/bmc-data-sync", "entries.json")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestOpenControl_WiresPeerReachable(t *testing.T) {
	dir := t.TempDir()
	cfg := daemonconfig.Config{StatePath: filepath.Join(dir, "state.json")}

	s := openControl(cfg, fakeRoleProvider{reachable: false})
	if s.PeerReachable == nil || s.PeerReachable() {
		t.Fatal("expected PeerReachable wired to report false")
	}

	s2 := openControl(cfg, fakeRoleProvider{reachable: true})
	if !s2.PeerReachable() {
		t.Fatal("expected PeerReachable wired to report true")
	}
}
