package control

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	if s.Disable() != false {
		t.Fatalf("expected Disable=false, got %v", s.Disable())
	}
	if s.FullSyncStatus() != Idle {
		t.Fatalf("expected Idle, got %v", s.FullSyncStatus())
	}
	if s.SyncEventsHealth() != Ok {
		t.Fatalf("expected Ok, got %v", s.SyncEventsHealth())
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Load(path)
	if s.Disable() != false || s.FullSyncStatus() != Idle || s.SyncEventsHealth() != Ok {
		t.Fatal("expected corrupt file to be tolerated with defaults")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)
	if err := s.SetDisable(true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFullSyncStatus(InProgress); err != nil {
		t.Fatal(err)
	}
	if err := s.SetHealth(Critical); err != nil {
		t.Fatal(err)
	}

	reloaded := Load(path)
	if !reloaded.Disable() {
		t.Error("expected Disable=true after reload")
	}
	if reloaded.FullSyncStatus() != InProgress {
		t.Errorf("expected InProgress after reload, got %v", reloaded.FullSyncStatus())
	}
	if reloaded.SyncEventsHealth() != Critical {
		t.Errorf("expected Critical after reload, got %v", reloaded.SyncEventsHealth())
	}
}

func TestSetDisable_NoOpWhenUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)
	if err := s.SetDisable(false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no persistence write for a no-op SetDisable")
	}
}

func TestSetDisable_TracksHealth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)

	if err := s.SetDisable(true); err != nil {
		t.Fatal(err)
	}
	if s.SyncEventsHealth() != Paused {
		t.Fatalf("expected Paused, got %v", s.SyncEventsHealth())
	}

	if err := s.SetDisable(false); err != nil {
		t.Fatal(err)
	}
	if s.SyncEventsHealth() != Ok {
		t.Fatalf("expected Ok, got %v", s.SyncEventsHealth())
	}
}

func TestSetDisable_PreservesCriticalHealth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)
	if err := s.SetHealth(Critical); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDisable(true); err != nil {
		t.Fatal(err)
	}
	if s.SyncEventsHealth() != Critical {
		t.Fatalf("expected Critical health to survive Disable toggling, got %v", s.SyncEventsHealth())
	}
}

func TestStartFullSync_RejectsWhenDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)
	if err := s.SetDisable(true); err != nil {
		t.Fatal(err)
	}
	if err := s.StartFullSync(); !errors.Is(err, ErrSyncDisabled) {
		t.Fatalf("expected ErrSyncDisabled, got %v", err)
	}
}

func TestStartFullSync_RejectsWhenPeerUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)
	s.PeerReachable = func() bool { return false }
	if err := s.StartFullSync(); !errors.Is(err, ErrSiblingBMCNotAvailable) {
		t.Fatalf("expected ErrSiblingBMCNotAvailable, got %v", err)
	}
}

func TestStartFullSync_RejectsWhenAlreadyInProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)
	if err := s.SetFullSyncStatus(InProgress); err != nil {
		t.Fatal(err)
	}
	if err := s.StartFullSync(); !errors.Is(err, ErrFullSyncInProgress) {
		t.Fatalf("expected ErrFullSyncInProgress, got %v", err)
	}
}

func TestRefresh_AdoptsExternalDisableEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	daemon := Load(path)
	cli := Load(path)

	if err := cli.SetDisable(true); err != nil {
		t.Fatal(err)
	}
	if daemon.Disable() {
		t.Fatal("daemon surface should not see the edit until Refresh")
	}
	if err := daemon.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !daemon.Disable() {
		t.Fatal("expected daemon surface to adopt the externally-set Disable")
	}
}

func TestRefresh_LaunchesStarterOnExternalFullSyncRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	daemon := Load(path)
	called := make(chan struct{})
	daemon.SetFullSyncStarter(func() error {
		close(called)
		return nil
	})

	cli := Load(path)
	if err := cli.StartFullSync(); err != nil {
		t.Fatal(err)
	}

	if err := daemon.Refresh(); err != nil {
		t.Fatal(err)
	}
	if daemon.FullSyncStatus() != InProgress {
		t.Fatalf("expected InProgress, got %v", daemon.FullSyncStatus())
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("expected daemon surface to launch the wired starter")
	}
}

func TestRefresh_RejectsExternalFullSyncRequestWhenPeerUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	daemon := Load(path)
	daemon.PeerReachable = func() bool { return false }
	called := make(chan struct{})
	daemon.SetFullSyncStarter(func() error {
		close(called)
		return nil
	})

	cli := Load(path)
	if err := cli.SetFullSyncStatus(InProgress); err != nil {
		t.Fatal(err)
	}

	if err := daemon.Refresh(); err != nil {
		t.Fatal(err)
	}
	if daemon.FullSyncStatus() != Failed {
		t.Fatalf("expected Failed, got %v", daemon.FullSyncStatus())
	}
	select {
	case <-called:
		t.Fatal("starter should not run when the sibling is unreachable")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartFullSync_InvokesStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path)
	called := make(chan struct{})
	s.SetFullSyncStarter(func() error {
		close(called)
		return nil
	})
	if err := s.StartFullSync(); err != nil {
		t.Fatal(err)
	}
	if s.FullSyncStatus() != InProgress {
		t.Fatalf("expected InProgress immediately after StartFullSync, got %v", s.FullSyncStatus())
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("expected starter to be invoked")
	}
}
