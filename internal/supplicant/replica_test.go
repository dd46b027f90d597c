package supplicant

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -----------------------------------------------------------------------
// Fake bus: no real system bus connection is driven in these tests. The
// fakeObject/fakeConn pair implements dbus.BusObject and this package's own
// busConn interface with canned, per-method responses, so the real dispatch
// loop runs against a scripted peer.
// -----------------------------------------------------------------------

type fakeObject struct {
	dest string
	path dbus.ObjectPath
	mu   sync.Mutex
	on_  map[string]func(args []interface{}) ([]interface{}, error)
}

func newFakeObject(dest string, path dbus.ObjectPath) *fakeObject {
	return &fakeObject{dest: dest, path: path, on_: make(map[string]func([]interface{}) ([]interface{}, error))}
}

func (o *fakeObject) on(method string, fn func(args []interface{}) ([]interface{}, error)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.on_[method] = fn
}

func (o *fakeObject) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	o.mu.Lock()
	fn, ok := o.on_[method]
	o.mu.Unlock()
	if !ok {
		return &dbus.Call{Err: fmt.Errorf("fake bus: no handler for %s on %s", method, o.path)}
	}
	body, err := fn(args)
	return &dbus.Call{Body: body, Err: err}
}

func (o *fakeObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	return o.Call(method, flags, args...)
}

func (o *fakeObject) Go(method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	return o.Call(method, flags, args...)
}

func (o *fakeObject) GoWithContext(ctx context.Context, method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	return o.Call(method, flags, args...)
}

func (o *fakeObject) AddMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	return &dbus.Call{}
}

func (o *fakeObject) RemoveMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	return &dbus.Call{}
}

func (o *fakeObject) GetProperty(p string) (dbus.Variant, error) { return dbus.Variant{}, nil }
func (o *fakeObject) StoreProperty(p string, value interface{}) error { return nil }
func (o *fakeObject) SetProperty(p string, v interface{}) error      { return nil }
func (o *fakeObject) Destination() string                            { return o.dest }
func (o *fakeObject) Path() dbus.ObjectPath                          { return o.path }

var _ dbus.BusObject = (*fakeObject)(nil)

type fakeConn struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
}

func newFakeConn() *fakeConn {
	return &fakeConn{objects: make(map[string]*fakeObject)}
}

func (c *fakeConn) object(dest string, path dbus.ObjectPath) *fakeObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := dest + string(path)
	obj, ok := c.objects[key]
	if !ok {
		obj = newFakeObject(dest, path)
		c.objects[key] = obj
	}
	return obj
}

func (c *fakeConn) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return c.object(dest, path)
}

func (c *fakeConn) AddMatchSignal(options ...dbus.MatchOption) error    { return nil }
func (c *fakeConn) RemoveMatchSignal(options ...dbus.MatchOption) error { return nil }
func (c *fakeConn) Signal(ch chan<- *dbus.Signal)                      {}
func (c *fakeConn) RemoveSignal(ch chan<- *dbus.Signal)                {}
func (c *fakeConn) Close() error                                        { return nil }

var _ busConn = (*fakeConn)(nil)

type fakeMetrics struct {
	mu              sync.Mutex
	interfaces      int
	networks        int
	bsss            int
	scanStarted     int
	scanFinished    int
	peerAvailable   int
	peerUnavailable int
	controlErrors   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{controlErrors: make(map[string]int)}
}

func (m *fakeMetrics) SetInterfaces(n int) { m.mu.Lock(); m.interfaces = n; m.mu.Unlock() }
func (m *fakeMetrics) SetNetworks(n int)   { m.mu.Lock(); m.networks = n; m.mu.Unlock() }
func (m *fakeMetrics) SetBSSs(n int)       { m.mu.Lock(); m.bsss = n; m.mu.Unlock() }
func (m *fakeMetrics) IncScanStarted()     { m.mu.Lock(); m.scanStarted++; m.mu.Unlock() }
func (m *fakeMetrics) IncScanFinished()    { m.mu.Lock(); m.scanFinished++; m.mu.Unlock() }
func (m *fakeMetrics) IncPeerAvailable()   { m.mu.Lock(); m.peerAvailable++; m.mu.Unlock() }
func (m *fakeMetrics) IncPeerUnavailable() { m.mu.Lock(); m.peerUnavailable++; m.mu.Unlock() }
func (m *fakeMetrics) IncControlError(op string) {
	m.mu.Lock()
	m.controlErrors[op]++
	m.mu.Unlock()
}

var _ Metrics = (*fakeMetrics)(nil)

func nameOwnerChangedSignal(old, new_ string) *dbus.Signal {
	return &dbus.Signal{
		Path: "/org/freedesktop/DBus",
		Name: sigNameOwnerChanged,
		Body: []interface{}{ServiceName, old, new_},
	}
}

func interfaceAddedSignal(path string, bag map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: RootPath,
		Name: sigInterfaceAdded,
		Body: []interface{}{dbus.ObjectPath(path), bag},
	}
}

func interfaceRemovedSignal(path string) *dbus.Signal {
	return &dbus.Signal{
		Path: RootPath,
		Name: sigInterfaceRemoved,
		Body: []interface{}{dbus.ObjectPath(path)},
	}
}

func bssAddedSignal(ifacePath, bssPath string, bag map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: dbus.ObjectPath(ifacePath),
		Name: sigBSSAdded,
		Body: []interface{}{dbus.ObjectPath(bssPath), bag},
	}
}

func stageRootBootstrap(fc *fakeConn, ifacePath string, eapMethods []string) {
	obj := fc.object(ServiceName, RootPath)
	obj.on(propertiesInterface+".GetAll", func(args []interface{}) ([]interface{}, error) {
		bag := map[string]dbus.Variant{
			"Interfaces": dbus.MakeVariant([]dbus.ObjectPath{dbus.ObjectPath(ifacePath)}),
			"EapMethods": dbus.MakeVariant(append([]string{}, eapMethods...)),
		}
		return []interface{}{bag}, nil
	})
}

func stageInterfaceBootstrap(fc *fakeConn, path, ifname, state string, bssPaths []string) {
	obj := fc.object(ServiceName, dbus.ObjectPath(path))
	obj.on(propertiesInterface+".GetAll", func(args []interface{}) ([]interface{}, error) {
		paths := make([]dbus.ObjectPath, len(bssPaths))
		for i, p := range bssPaths {
			paths[i] = dbus.ObjectPath(p)
		}
		bag := map[string]dbus.Variant{
			"Ifname": dbus.MakeVariant(ifname),
			"State":  dbus.MakeVariant(state),
			"BSSs":   dbus.MakeVariant(paths),
		}
		return []interface{}{bag}, nil
	})
}

func stageBSSBootstrap(fc *fakeConn, path, ssid string, capabilities uint16) {
	obj := fc.object(ServiceName, dbus.ObjectPath(path))
	obj.on(propertiesInterface+".GetAll", func(args []interface{}) ([]interface{}, error) {
		bag := map[string]dbus.Variant{
			"SSID":         dbus.MakeVariant([]byte(ssid)),
			"Capabilities": dbus.MakeVariant(capabilities),
		}
		return []interface{}{bag}, nil
	})
}

// -----------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------

func TestReplica_BootstrapOnPeerAvailable(t *testing.T) {
	fc := newFakeConn()
	stageRootBootstrap(fc, "/iface/0", []string{"MD5", "TLS"})
	stageInterfaceBootstrap(fc, "/iface/0", "wlan0", "completed", []string{"/bss/0"})
	stageBSSBootstrap(fc, "/bss/0", "Guest", 0x0011)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(ev string) {
		mu.Lock()
		order = append(order, ev)
		mu.Unlock()
	}

	netAdded := make(chan struct{}, 1)
	cb := Callbacks{
		SystemReady:    func() { record("system_ready") },
		InterfaceAdded: func(*Interface) { record("interface_added") },
		NetworkAdded: func(*Network) {
			record("network_added")
			netAdded <- struct{}{}
		},
	}

	metrics := newFakeMetrics()
	r := NewReplica(ReplicaConfig{Conn: fc, Callbacks: cb, Metrics: metrics})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.signals <- nameOwnerChangedSignal("", ":1.1")

	select {
	case <-netAdded:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for NetworkAdded")
	}

	mu.Lock()
	got := append([]string(nil), order...)
	mu.Unlock()
	want := []string{"system_ready", "interface_added", "network_added"}
	if len(got) != len(want) {
		t.Fatalf("callback order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("callback order = %v, want %v", got, want)
		}
	}
	if !r.IsAvailable() || !r.IsReady() {
		t.Fatal("replica not marked available/ready after bootstrap")
	}
	if eap := r.EAPMethods(); eap&EAPMethodMD5 == 0 || eap&EAPMethodTLS == 0 {
		t.Fatalf("EAPMethods = %b, want MD5|TLS set", eap)
	}
	_ = metrics
}

func TestReplica_PeerLossEmptiesReplica(t *testing.T) {
	fc := newFakeConn()
	stageRootBootstrap(fc, "/iface/0", nil)
	stageInterfaceBootstrap(fc, "/iface/0", "wlan0", "completed", []string{"/bss/0"})
	stageBSSBootstrap(fc, "/bss/0", "Guest", 0x0011)

	ready := make(chan struct{}, 1)
	killed := make(chan struct{}, 1)
	cb := Callbacks{
		SystemReady:  func() { ready <- struct{}{} },
		SystemKilled: func() { killed <- struct{}{} },
	}

	r := NewReplica(ReplicaConfig{Conn: fc, Callbacks: cb})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.signals <- nameOwnerChangedSignal("", ":1.1")
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SystemReady")
	}

	r.signals <- nameOwnerChangedSignal(":1.1", "")
	select {
	case <-killed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SystemKilled")
	}

	if r.IsAvailable() {
		t.Fatal("replica still marked available after peer loss")
	}
	if len(r.interfaces) != 0 {
		t.Fatalf("interfaces not emptied after peer loss: %d remain", len(r.interfaces))
	}
}

func TestReplica_DuplicateInterfaceAddedIsIdempotent(t *testing.T) {
	fc := newFakeConn()
	stageRootBootstrap(fc, "/iface/0", nil)
	stageInterfaceBootstrap(fc, "/iface/0", "wlan0", "completed", nil)

	ready := make(chan struct{}, 1)
	var added int32
	cb := Callbacks{
		SystemReady:    func() { ready <- struct{}{} },
		InterfaceAdded: func(*Interface) { atomic.AddInt32(&added, 1) },
	}
	r := NewReplica(ReplicaConfig{Conn: fc, Callbacks: cb})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.signals <- nameOwnerChangedSignal("", ":1.1")
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SystemReady")
	}

	// Re-deliver the same interface as an explicit InterfaceAdded signal;
	// the path is already indexed so this must be a no-op.
	r.signals <- interfaceAddedSignal("/iface/0", map[string]dbus.Variant{
		"Ifname": dbus.MakeVariant("wlan0"),
	})
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&added); got != 1 {
		t.Fatalf("InterfaceAdded fired %d times, want 1", got)
	}
	if len(r.interfaces) != 1 {
		t.Fatalf("interfaces has %d entries, want 1", len(r.interfaces))
	}
}

func TestReplica_NullPathInterfaceRemovedIgnored(t *testing.T) {
	fc := newFakeConn()
	stageRootBootstrap(fc, "/iface/0", nil)
	stageInterfaceBootstrap(fc, "/iface/0", "wlan0", "completed", nil)

	ready := make(chan struct{}, 1)
	var removed int32
	cb := Callbacks{
		SystemReady:      func() { ready <- struct{}{} },
		InterfaceRemoved: func(*Interface) { atomic.AddInt32(&removed, 1) },
	}
	r := NewReplica(ReplicaConfig{Conn: fc, Callbacks: cb})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.signals <- nameOwnerChangedSignal("", ":1.1")
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SystemReady")
	}

	r.signals <- interfaceRemovedSignal("/")
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&removed); got != 0 {
		t.Fatalf("InterfaceRemoved fired %d times for null path, want 0", got)
	}
	if len(r.interfaces) != 1 {
		t.Fatalf("interfaces has %d entries, want 1 (untouched)", len(r.interfaces))
	}
}

func TestReplica_ScanLifecycle(t *testing.T) {
	fc := newFakeConn()
	stageRootBootstrap(fc, "/iface/0", nil)
	stageInterfaceBootstrap(fc, "/iface/0", "wlan0", "completed", nil)

	ready := make(chan struct{}, 1)
	scanFinished := make(chan struct{}, 1)
	cb := Callbacks{
		SystemReady:  func() { ready <- struct{}{} },
		ScanFinished: func(*Interface) { scanFinished <- struct{}{} },
	}
	metrics := newFakeMetrics()
	r := NewReplica(ReplicaConfig{Conn: fc, Callbacks: cb, Metrics: metrics})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.signals <- nameOwnerChangedSignal("", ":1.1")
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SystemReady")
	}

	r.signals <- &dbus.Signal{
		Path: "/iface/0",
		Name: sigScanDone,
		Body: []interface{}{true},
	}

	select {
	case <-scanFinished:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ScanFinished")
	}
}

func TestReplica_BSSAddedIdempotentAndRemovalRestoresState(t *testing.T) {
	fc := newFakeConn()
	stageRootBootstrap(fc, "/iface/0", nil)
	stageInterfaceBootstrap(fc, "/iface/0", "wlan0", "completed", nil)

	ready := make(chan struct{}, 1)
	netEvents := make(chan string, 4)
	cb := Callbacks{
		SystemReady:    func() { ready <- struct{}{} },
		NetworkAdded:   func(*Network) { netEvents <- "added" },
		NetworkRemoved: func(*Network) { netEvents <- "removed" },
	}
	r := NewReplica(ReplicaConfig{Conn: fc, Callbacks: cb})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.signals <- nameOwnerChangedSignal("", ":1.1")
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SystemReady")
	}

	bag := map[string]dbus.Variant{
		"SSID":         dbus.MakeVariant([]byte("Guest")),
		"Capabilities": dbus.MakeVariant(uint16(0x0011)),
	}
	r.signals <- bssAddedSignal("/iface/0", "/bss/0", bag)
	select {
	case ev := <-netEvents:
		if ev != "added" {
			t.Fatalf("first network event = %q, want added", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for NetworkAdded")
	}

	// Re-delivering the same BSSAdded must not duplicate anything.
	r.signals <- bssAddedSignal("/iface/0", "/bss/0", bag)

	// Removing the only BSS empties its network; removing it again is a
	// no-op rather than a fault.
	removeSig := &dbus.Signal{
		Path: "/iface/0",
		Name: sigBSSRemoved,
		Body: []interface{}{dbus.ObjectPath("/bss/0")},
	}
	r.signals <- removeSig
	select {
	case ev := <-netEvents:
		if ev != "removed" {
			t.Fatalf("network event after removal = %q, want removed", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for NetworkRemoved")
	}
	r.signals <- removeSig
	time.Sleep(50 * time.Millisecond)

	select {
	case ev := <-netEvents:
		t.Fatalf("unexpected extra network event %q", ev)
	default:
	}

	iface, ok := r.Interface("/iface/0")
	if !ok {
		t.Fatal("interface missing from replica")
	}
	if len(iface.NetworkTable) != 0 || len(iface.BSSIndex) != 0 {
		t.Fatalf("indices not empty after removal: networks=%d bsss=%d",
			len(iface.NetworkTable), len(iface.BSSIndex))
	}
}

func TestCreateInterface_AdoptsExistingViaGetInterface(t *testing.T) {
	fc := newFakeConn()
	rootObj := fc.object(ServiceName, RootPath)
	rootObj.on(RootInterface+".GetInterface", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{dbus.ObjectPath("/iface/0")}, nil
	})
	stageInterfaceBootstrap(fc, "/iface/0", "wlan0", "completed", nil)

	r := NewReplica(ReplicaConfig{Conn: fc})
	r.available.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	done := make(chan struct{}, 1)
	var gotIface *Interface
	var gotErr error
	if err := r.CreateInterface("wlan0", "", func(iface *Interface, err error) {
		gotIface, gotErr = iface, err
		done <- struct{}{}
	}); err != nil {
		t.Fatalf("CreateInterface pre-check: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	if gotErr != nil {
		t.Fatalf("completion error: %v", gotErr)
	}
	if gotIface == nil || gotIface.Path != "/iface/0" {
		t.Fatalf("got iface %+v, want /iface/0", gotIface)
	}
}
