package session

import (
	"testing"
	"time"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	"github.com/taoyao-code/camera-bridge/internal/camera"
	"github.com/taoyao-code/camera-bridge/internal/camera/cameratest"
)

func newClient(t *testing.T) (*camera.Client, *cameratest.Link) {
	t.Helper()
	link := cameratest.NewLink()
	c, err := camera.New(link)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, link
}

func TestManager_BindGetUnbind(t *testing.T) {
	m := New(time.Second)
	var counts []int
	m.OnChange(func(n int) { counts = append(counts, n) })

	a, linkA := newClient(t)
	m.Bind("A", a)
	if got, ok := m.Get("A"); !ok || got != a {
		t.Fatalf("get A failed")
	}
	if !m.IsOnline("A") || m.OnlineCount() != 1 {
		t.Fatalf("A should be online")
	}

	linkA.SetConnected(false)
	if m.IsOnline("A") || m.OnlineCount() != 0 {
		t.Fatalf("A link down but reported online")
	}

	m.Unbind("A")
	if _, ok := m.Get("A"); ok {
		t.Fatalf("A still bound")
	}
	if a.Connected() {
		t.Fatalf("unbind must close the client")
	}
	m.Unbind("A")
	if len(counts) != 2 || counts[0] != 1 || counts[1] != 0 {
		t.Fatalf("onChange=%v", counts)
	}
}

func TestManager_RebindClosesOld(t *testing.T) {
	m := New(time.Second)
	old, _ := newClient(t)
	fresh, _ := newClient(t)
	m.Bind("A", old)
	m.Bind("A", fresh)
	if old.Connected() {
		t.Fatalf("old client left open")
	}
	if got, _ := m.Get("A"); got != fresh {
		t.Fatalf("rebind not applied")
	}
}

func TestManager_TouchActive(t *testing.T) {
	m := New(500 * time.Millisecond)
	c, _ := newClient(t)
	ts := time.Now()

	m.Touch("A", ts)
	if m.IsActive("A", ts) {
		t.Fatalf("touch on unbound camera recorded")
	}
	m.Bind("A", c)
	m.Touch("A", ts)
	if !m.IsActive("A", ts.Add(400*time.Millisecond)) {
		t.Fatalf("should be active before timeout")
	}
	if m.IsActive("A", ts.Add(600*time.Millisecond)) {
		t.Fatalf("should be inactive after timeout")
	}
}

func TestManager_ListenerTouches(t *testing.T) {
	m := New(time.Minute)
	c, link := newClient(t)
	m.Bind("A", c)
	c.AddListener(bcs.AddrGain, m.Listener("A"))

	link.Rx().Notify(cameratest.Notification(1, 13, uint8(bcs.TypeInt8), 6))
	if !m.IsActive("A", time.Now()) {
		t.Fatalf("notification did not refresh last seen")
	}
}

func TestManager_SnapshotAndCloseAll(t *testing.T) {
	m := New(time.Second)
	b, _ := newClient(t)
	a, _ := newClient(t)
	m.Bind("B", b)
	m.Bind("A", a)
	m.Touch("B", time.Now())

	snap := m.Snapshot()
	if len(snap) != 2 || snap[0].Name != "A" || snap[1].Name != "B" {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap[0].LastSeen != nil || snap[1].LastSeen == nil {
		t.Fatalf("last seen mismatch: %+v", snap)
	}

	m.CloseAll()
	if a.Connected() || b.Connected() || len(m.Snapshot()) != 0 {
		t.Fatalf("close all incomplete")
	}
}
