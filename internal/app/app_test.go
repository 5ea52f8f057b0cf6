package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed int
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", domain.Identity{UserID: "u1", Name: "Alice"})
	r.Register("c1", domain.Identity{UserID: "u1", Name: "Alicia"})
	r.Register("c2", domain.Identity{UserID: "u1", Name: "Alice"})

	if id, ok := r.Lookup("c1"); !ok || id.Name != "Alicia" {
		t.Errorf("Lookup c1 = %+v %v, want overwritten identity", id, ok)
	}
	if r.Count() != 2 {
		t.Errorf("Count = %d, want 2", r.Count())
	}
	if _, ok := r.Unregister("c1"); !ok {
		t.Error("first Unregister should succeed")
	}
	if _, ok := r.Unregister("c1"); ok {
		t.Error("second Unregister should report false")
	}
}

func TestConnectionsDetachOnce(t *testing.T) {
	conns := NewConnections()
	conns.Attach("c1", &fakeConn{})

	if _, ok := conns.Detach("c1"); !ok {
		t.Fatal("first Detach should succeed")
	}
	if _, ok := conns.Detach("c1"); ok {
		t.Error("second Detach should report false")
	}
	if err := conns.Send("c1", core.Frame("x")); !errors.Is(err, ErrStaleTarget) {
		t.Errorf("Send after detach = %v, want ErrStaleTarget", err)
	}
}

func TestDispatcherPublish(t *testing.T) {
	conns := NewConnections()
	a, b, slow := &fakeConn{}, &fakeConn{}, &fakeConn{full: true}
	conns.Attach("a", a)
	conns.Attach("b", b)
	conns.Attach("slow", slow)
	d := NewDispatcher(conns)

	tests := []struct {
		name     string
		to       []domain.ConnID
		except   domain.ConnID
		wantSent int
		wantDrop int
	}{
		{"everyone", []domain.ConnID{"a", "b"}, "", 2, 0},
		{"exclude sender", []domain.ConnID{"a", "b"}, "a", 1, 0},
		{"gone connection skipped", []domain.ConnID{"a", "ghost"}, "", 1, 0},
		{"full buffer reported", []domain.ConnID{"a", "slow"}, "", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Publish(tt.to, tt.except, core.Frame(`{"type":"x"}`))
			if res.SentTo != tt.wantSent || len(res.Dropped) != tt.wantDrop {
				t.Errorf("got %+v, want sent=%d dropped=%d", res, tt.wantSent, tt.wantDrop)
			}
		})
	}

	if res := d.Publish([]domain.ConnID{"a"}, "", nil); res.SentTo != 0 {
		t.Error("nil frame must not be delivered")
	}
}

func TestForwarder(t *testing.T) {
	conns := NewConnections()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	conns.Attach("a", a)
	conns.Attach("b", b)
	conns.Attach("c", c)
	f := NewForwarder(conns)

	payload := json.RawMessage(`{"sdp":"v=0"}`)
	if err := f.Forward(protocol.TypeOffer, "a", "b", payload); err != nil {
		t.Fatal(err)
	}
	if b.count() != 1 || a.count() != 0 || c.count() != 0 {
		t.Fatalf("delivery counts a=%d b=%d c=%d, want only b", a.count(), b.count(), c.count())
	}

	var got struct {
		Type  string          `json:"type"`
		From  string          `json:"from"`
		Offer json.RawMessage `json:"offer"`
	}
	if err := json.Unmarshal(b.frames[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "offer" || got.From != "a" || string(got.Offer) != string(payload) {
		t.Errorf("frame = %s", b.frames[0])
	}

	if err := f.Forward(protocol.TypeAnswer, "a", "ghost", payload); !errors.Is(err, ErrStaleTarget) {
		t.Errorf("forward to ghost = %v, want ErrStaleTarget", err)
	}
	if err := f.Forward(protocol.TypeJoinRoom, "a", "b", payload); !errors.Is(err, ErrNotSignal) {
		t.Errorf("forward of join-room = %v, want ErrNotSignal", err)
	}
}

func TestRoomManager(t *testing.T) {
	m := NewRoomManager()
	r1 := m.GetOrCreate("r1")
	if m.GetOrCreate("r1") != r1 {
		t.Fatal("GetOrCreate must return the same room")
	}
	if _, ok := m.Get("r2"); ok {
		t.Error("Get must not create")
	}
	m.GetOrCreate("r0")
	r1.Join(domain.NewMember("c1", domain.Identity{Name: "A"}), nil)

	list := m.List()
	if len(list) != 2 || list[0].ID != "r0" || list[1].MemberCount != 1 {
		t.Errorf("List = %+v", list)
	}
	if j := m.Joined("c1"); len(j) != 1 || j[0].ID() != "r1" {
		t.Errorf("Joined = %v", j)
	}
}

func TestStreamManager(t *testing.T) {
	m := NewStreamManager()
	bea := domain.NewMember("b1", domain.Identity{Name: "Bea"})

	if err := m.Join("s1", "v1", nil); !errors.Is(err, core.ErrStreamNotFound) {
		t.Fatalf("join unknown = %v", err)
	}

	first, old := m.Start("s1", bea)
	if old != nil {
		t.Fatal("first start replaced something")
	}
	if err := m.Join("s1", "v1", nil); err != nil {
		t.Fatal(err)
	}
	if w := m.Watching("v1"); len(w) != 1 {
		t.Errorf("Watching = %d streams", len(w))
	}

	second, old := m.Start("s1", domain.NewMember("b2", domain.Identity{Name: "Bo"}))
	if old != first {
		t.Fatal("restart should hand back the previous instance")
	}
	first.End(nil)

	t.Run("remove only current instance", func(t *testing.T) {
		if m.Remove("s1", first) {
			t.Error("stale instance removed the live stream")
		}
		if s, _ := m.Get("s1"); s != second {
			t.Error("live stream lost")
		}
	})

	t.Run("owned by broadcaster", func(t *testing.T) {
		if len(m.Owned("b1")) != 0 || len(m.Owned("b2")) != 1 {
			t.Error("ownership wrong after restart")
		}
	})

	list := m.List()
	if len(list) != 1 || list[0].BroadcasterName != "Bo" {
		t.Errorf("List = %+v", list)
	}

	if !m.Remove("s1", second) {
		t.Error("Remove of current instance failed")
	}
	if err := m.Join("s1", "v1", nil); !errors.Is(err, core.ErrStreamNotFound) {
		t.Errorf("join after remove = %v", err)
	}
}

func TestSessionClosedRefusesWork(t *testing.T) {
	conns := NewConnections()
	s := conns.Attach("c1", &fakeConn{})

	ran := 0
	if !s.Do(func() { ran++ }) {
		t.Fatal("Do on live session refused")
	}
	if !s.Close(func() { ran++ }) {
		t.Fatal("first Close refused")
	}
	if s.Close(func() { ran++ }) {
		t.Error("second Close ran")
	}
	if s.Do(func() { ran++ }) {
		t.Error("Do ran after Close")
	}
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
}
