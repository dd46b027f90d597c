package supplicant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
)

// The peer replica and signal router. A single goroutine (Run) serializes
// all signal handling, reply handling, and control-operation execution by
// draining one channel of inbound bus signals and one channel of pending
// command closures. No locks protect replica state; correctness depends
// entirely on that state never being touched outside this goroutine.
// External callers only ever touch the lock-free atomic available/ready
// flags directly; everything else is a closure sent through commands.

const commandQueueSize = 64

// Metrics is the subset of internal/metrics.Collector's behavior the
// replica can drive. It is defined here, not imported from internal/metrics,
// so this package has no dependency on the metrics package; Collector
// satisfies it structurally.
type Metrics interface {
	SetInterfaces(n int)
	SetNetworks(n int)
	SetBSSs(n int)
	IncScanStarted()
	IncScanFinished()
	IncPeerAvailable()
	IncPeerUnavailable()
	IncControlError(op string)
}

// ReplicaConfig configures a Replica.
type ReplicaConfig struct {
	// Conn is the bus connection to drive. Required.
	Conn busConn

	// ServiceName overrides the peer's well-known bus name. Empty means
	// the default fi.w1.wpa_supplicant1 (the ServiceName constant).
	ServiceName string

	// RootPath overrides the peer's root object path. Empty means the
	// default (the RootPath variable).
	RootPath dbus.ObjectPath

	// Callbacks is the outward callback surface. All fields optional.
	Callbacks Callbacks

	// Logger is the parent logger; the replica adds its own component tag.
	// If nil, a discarding logger is used.
	Logger *slog.Logger

	// Metrics is optional; if nil, metrics calls are skipped.
	Metrics Metrics
}

// Replica is the process-wide, eventually-consistent model of the peer's
// object tree.
type Replica struct {
	conn        busConn
	serviceName string
	rootPath    dbus.ObjectPath
	callbacks   Callbacks
	logger      *slog.Logger
	metrics     Metrics

	interfaces map[string]*Interface

	available atomic.Bool
	ready     atomic.Bool

	eapMethods EAPMethodSet

	debugTimestamp bool
	debugShowKeys  bool
	lastSetLevel   int32

	commands chan func(*Replica)
	signals  chan *dbus.Signal
}

// NewReplica constructs a Replica bound to cfg.Conn. It installs no match
// rules and starts no goroutines; call Run to do both.
func NewReplica(cfg ReplicaConfig) *Replica {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = ServiceName
	}
	rootPath := cfg.RootPath
	if rootPath == "" {
		rootPath = RootPath
	}

	return &Replica{
		conn:        cfg.Conn,
		serviceName: serviceName,
		rootPath:    rootPath,
		callbacks:   cfg.Callbacks,
		logger:      logger.With(slog.String("component", "supplicant.replica")),
		metrics:     cfg.Metrics,
		interfaces:  make(map[string]*Interface),
		commands:    make(chan func(*Replica), commandQueueSize),
		signals:     make(chan *dbus.Signal, commandQueueSize),
	}
}

// IsAvailable reports whether the peer service currently has a bus owner.
func (r *Replica) IsAvailable() bool { return r.available.Load() }

// IsReady reports whether the replica has completed a bootstrap since the
// peer last became available; peer loss and Run's exit clear it.
func (r *Replica) IsReady() bool { return r.ready.Load() }

// EAPMethods returns the process-wide EAP method bitset aggregated from the
// root "EapMethods" property at bootstrap.
func (r *Replica) EAPMethods() EAPMethodSet { return r.eapMethods }

// Interface returns the tracked interface at path, if any. Safe to call
// only from within a command/callback (i.e. from the Run goroutine) or via
// a completion callback; calling it from another goroutine races with Run.
func (r *Replica) Interface(path string) (*Interface, bool) {
	iface, ok := r.interfaces[path]
	return iface, ok
}

// InterfaceByName returns the tracked interface whose Ifname matches name,
// if any. Same calling-convention restriction as Interface.
func (r *Replica) InterfaceByName(name string) (*Interface, bool) {
	for _, iface := range r.interfaces {
		if iface.Ifname == name {
			return iface, true
		}
	}
	return nil, false
}

// Interfaces returns a snapshot slice of every tracked interface, sorted by
// path for deterministic output (used by cmd/supplicantctl's listing
// commands). Same calling-convention restriction as Interface.
func (r *Replica) Interfaces() []*Interface {
	out := make([]*Interface, 0, len(r.interfaces))
	for _, iface := range r.interfaces {
		out = append(out, iface)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Run installs the bus match rules, subscribes to signals, performs an
// immediate availability check (the peer may already be running), and then
// drains
// signals and commands until ctx is cancelled. It always tears the replica
// down cleanly before returning, emitting SystemKilled if the peer was
// available.
func (r *Replica) Run(ctx context.Context) error {
	if err := r.installMatchRules(); err != nil {
		return fmt.Errorf("install match rules: %w", err)
	}
	defer r.removeMatchRules()

	r.conn.Signal(r.signals)
	defer r.conn.RemoveSignal(r.signals)

	r.checkInitialAvailability()

	for {
		select {
		case <-ctx.Done():
			r.teardown()
			return nil
		case sig := <-r.signals:
			r.dispatchSignal(sig)
		case cmd := <-r.commands:
			cmd(r)
		}
	}
}

func (r *Replica) installMatchRules() error {
	if err := r.conn.AddMatchSignal(matchRules(r.serviceName)...); err != nil {
		return err
	}
	for _, rule := range interfaceMatchRules() {
		if err := r.conn.AddMatchSignal(rule...); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replica) removeMatchRules() {
	for _, rule := range interfaceMatchRules() {
		_ = r.conn.RemoveMatchSignal(rule...)
	}
	_ = r.conn.RemoveMatchSignal(matchRules(r.serviceName)...)
}

// checkInitialAvailability handles the peer already running when Run
// starts: bootstrap happens immediately rather than waiting for a
// NameOwnerChanged signal that will never arrive.
func (r *Replica) checkInitialAvailability() {
	busObj := r.conn.Object(busDaemonInterface, dbus.ObjectPath("/org/freedesktop/DBus"))
	call := busObj.Call(busDaemonInterface+".NameHasOwner", 0, r.serviceName)
	if call.Err != nil {
		r.logger.Debug("NameHasOwner check failed", slog.String("error", call.Err.Error()))
		return
	}
	var hasOwner bool
	if err := call.Store(&hasOwner); err != nil || !hasOwner {
		return
	}
	r.markAvailable()
}

func (r *Replica) markAvailable() {
	r.available.Store(true)
	if r.metrics != nil {
		r.metrics.IncPeerAvailable()
	}
	r.bootstrap()
}

// teardown runs on peer loss and on Run's exit: bulk-destroy the replica
// and emit SystemKilled if the peer was available.
func (r *Replica) teardown() {
	wasAvailable := r.available.Load()
	r.bulkDestroy()
	r.available.Store(false)
	r.ready.Store(false)
	if wasAvailable {
		r.callbacks.emitSystemKilled()
	}
}

// -----------------------------------------------------------------------
// Bootstrap
// -----------------------------------------------------------------------

func (r *Replica) bootstrap() {
	obj := r.conn.Object(r.serviceName, r.rootPath)
	bag, err := getAllProperties(obj, RootInterface)
	if err != nil {
		r.logger.Warn("bootstrap GetAll failed", slog.String("error", err.Error()))
		return
	}
	r.applyRootProperties(bag)
}

func (r *Replica) applyRootProperties(bag []Property) {
	// Interface paths are collected during the key walk but fetched only
	// after the terminator fires SystemReady, so SystemReady always precedes
	// the first InterfaceAdded.
	var pendingIfaces []string

	for _, p := range bag {
		switch p.Key {
		case "Interfaces":
			paths, ok := propStringSlice(p.Value)
			if !ok {
				continue
			}
			for _, path := range paths {
				if isNullPath(path) {
					continue
				}
				if _, exists := r.interfaces[path]; exists {
					continue
				}
				pendingIfaces = append(pendingIfaces, path)
			}

		case "EapMethods":
			methods, ok := propStringSlice(p.Value)
			if !ok {
				continue
			}
			r.eapMethods |= applyEAPMethods(methods)

		case "DebugTimeStamp":
			b, ok := propBool(p.Value)
			if ok {
				r.debugTimestamp = b
			}

		case "DebugShowKeys":
			b, ok := propBool(p.Value)
			if ok {
				r.debugShowKeys = b
			}

		case "DebugLevel":
			// Not retained; SetDebugLevel writes the combined
			// DebugParams tuple, not this property.

		default:
			r.logger.Debug("unrecognized root property", slog.String("key", p.Key))
		}
	}

	if !r.ready.Load() {
		r.ready.Store(true)
		r.callbacks.emitSystemReady()
	}

	for _, path := range pendingIfaces {
		if _, err := r.fetchAndApplyInterface(path); err != nil {
			r.logger.Warn("fetch interface failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	r.updateMetrics()
}

// adoptOrAllocateInterface returns the existing Interface at path or
// allocates and indexes a new one.
func (r *Replica) adoptOrAllocateInterface(path string) *Interface {
	if iface, ok := r.interfaces[path]; ok {
		return iface
	}
	iface := NewInterface(path)
	r.interfaces[path] = iface
	return iface
}

func (r *Replica) fetchAndApplyInterface(path string) (*Interface, error) {
	obj := r.conn.Object(r.serviceName, dbus.ObjectPath(path))
	bag, err := getAllProperties(obj, InterfaceInterface)
	if err != nil {
		return nil, err
	}
	iface := r.adoptOrAllocateInterface(path)
	pending := ApplyInterfaceProperties(iface, bag, r.callbacks, r.logger)
	for _, bssPath := range pending {
		r.fetchAndApplyBSS(iface, bssPath)
	}
	r.updateMetrics()
	return iface, nil
}

func (r *Replica) fetchAndApplyBSS(iface *Interface, path string) {
	obj := r.conn.Object(r.serviceName, dbus.ObjectPath(path))
	bag, err := getAllProperties(obj, BSSInterface)
	if err != nil {
		r.logger.Debug("fetch BSS failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	bss := BuildBSS(path, iface.Path, bag, r.logger)
	iface.InsertBSS(bss, r.callbacks, r.logger)
	r.updateMetrics()
}

// -----------------------------------------------------------------------
// Signal dispatch
// -----------------------------------------------------------------------

var (
	sigNameOwnerChanged  = busDaemonInterface + "." + busDaemonMember
	sigPropertiesChanged = propertiesInterface + ".PropertiesChanged"
	sigInterfaceAdded    = RootInterface + ".InterfaceAdded"
	sigInterfaceCreated  = RootInterface + ".InterfaceCreated"
	sigInterfaceRemoved  = RootInterface + ".InterfaceRemoved"
	sigScanDone          = InterfaceInterface + ".ScanDone"
	sigBSSAdded          = InterfaceInterface + ".BSSAdded"
	sigBSSRemoved        = InterfaceInterface + ".BSSRemoved"
	sigNetworkAdded      = InterfaceInterface + ".NetworkAdded"
	sigNetworkRemoved    = InterfaceInterface + ".NetworkRemoved"
)

func (r *Replica) dispatchSignal(sig *dbus.Signal) {
	switch sig.Name {
	case sigNameOwnerChanged:
		r.handleNameOwnerChanged(sig)
	case sigPropertiesChanged:
		r.handlePropertiesChanged(sig)
	case sigInterfaceAdded, sigInterfaceCreated:
		r.handleInterfaceAdded(sig)
	case sigInterfaceRemoved:
		r.handleInterfaceRemoved(sig)
	case sigScanDone:
		r.handleScanDone(sig)
	case sigBSSAdded:
		r.handleBSSAdded(sig)
	case sigBSSRemoved:
		r.handleBSSRemoved(sig)
	case sigNetworkAdded, sigNetworkRemoved:
		// Observational only: no replica mutation for the peer's own
		// notion of configured networks.
		r.logger.Debug("network signal observed", slog.String("signal", sig.Name))
	default:
		r.logger.Debug("unhandled signal", slog.String("signal", sig.Name))
	}
}

func (r *Replica) handleNameOwnerChanged(sig *dbus.Signal) {
	name, oldOwner, newOwner, ok := signalNameOwnerChanged(sig)
	if !ok || name != r.serviceName {
		return
	}
	switch {
	case oldOwner != "" && newOwner == "":
		if r.metrics != nil {
			r.metrics.IncPeerUnavailable()
		}
		r.teardown()
	case oldOwner == "" && newOwner != "":
		r.markAvailable()
	}
}

func (r *Replica) handlePropertiesChanged(sig *dbus.Signal) {
	ifaceName, changed, _, ok := signalPropertiesChanged(sig)
	if !ok {
		return
	}
	switch ifaceName {
	case RootInterface:
		r.applyRootProperties(changed)
	case InterfaceInterface:
		iface, exists := r.interfaces[string(sig.Path)]
		if !exists {
			return
		}
		pending := ApplyInterfaceProperties(iface, changed, r.callbacks, r.logger)
		for _, path := range pending {
			r.fetchAndApplyBSS(iface, path)
		}
	default:
		r.logger.Debug("properties changed on unrouted interface", slog.String("interface", ifaceName))
	}
}

func (r *Replica) handleInterfaceAdded(sig *dbus.Signal) {
	path, bag, ok := signalObjectWithProperties(sig)
	if !ok || isNullPath(path) {
		return
	}
	if _, exists := r.interfaces[path]; exists {
		return
	}
	iface := NewInterface(path)
	r.interfaces[path] = iface
	pending := ApplyInterfaceProperties(iface, bag, r.callbacks, r.logger)
	for _, bssPath := range pending {
		r.fetchAndApplyBSS(iface, bssPath)
	}
	r.updateMetrics()
}

func (r *Replica) handleInterfaceRemoved(sig *dbus.Signal) {
	path, ok := signalObjectPath(sig)
	if !ok || isNullPath(path) {
		return
	}
	r.destroyInterface(path)
}

func (r *Replica) handleScanDone(sig *dbus.Signal) {
	iface, ok := r.interfaces[string(sig.Path)]
	if !ok {
		return
	}
	if _, ok := signalScanDone(sig); !ok {
		return
	}
	if r.metrics != nil {
		r.metrics.IncScanFinished()
	}
	r.callbacks.emitScanFinished(iface)
}

func (r *Replica) handleBSSAdded(sig *dbus.Signal) {
	iface, ok := r.interfaces[string(sig.Path)]
	if !ok {
		return
	}
	path, bag, ok := signalObjectWithProperties(sig)
	if !ok || isNullPath(path) {
		return
	}
	if _, exists := iface.BSSIndex[path]; exists {
		return
	}
	bss := BuildBSS(path, iface.Path, bag, r.logger)
	iface.InsertBSS(bss, r.callbacks, r.logger)
	r.updateMetrics()
}

func (r *Replica) handleBSSRemoved(sig *dbus.Signal) {
	iface, ok := r.interfaces[string(sig.Path)]
	if !ok {
		return
	}
	path, ok := signalObjectPath(sig)
	if !ok || isNullPath(path) {
		return
	}
	iface.RemoveBSS(path, r.callbacks)
	r.updateMetrics()
}

// -----------------------------------------------------------------------
// Destruction (peer loss, InterfaceRemoved)
// -----------------------------------------------------------------------

// destroyInterface tears iface down: every BSS is removed first (emitting
// NetworkRemoved for any network that empties as a result), and only then
// does InterfaceRemoved fire.
func (r *Replica) destroyInterface(path string) {
	iface, ok := r.interfaces[path]
	if !ok {
		return
	}

	bssPaths := make([]string, 0, len(iface.BSSIndex))
	for p := range iface.BSSIndex {
		bssPaths = append(bssPaths, p)
	}
	for _, p := range bssPaths {
		iface.RemoveBSS(p, r.callbacks)
	}

	delete(r.interfaces, path)
	r.callbacks.emitInterfaceRemoved(iface)
	r.updateMetrics()
}

func (r *Replica) bulkDestroy() {
	paths := make([]string, 0, len(r.interfaces))
	for p := range r.interfaces {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		r.destroyInterface(p)
	}
}

// -----------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------

func (r *Replica) updateMetrics() {
	if r.metrics == nil {
		return
	}
	networks, bsss := 0, 0
	for _, iface := range r.interfaces {
		networks += len(iface.NetworkTable)
		bsss += len(iface.BSSIndex)
	}
	r.metrics.SetInterfaces(len(r.interfaces))
	r.metrics.SetNetworks(networks)
	r.metrics.SetBSSs(bsss)
}

// -----------------------------------------------------------------------
// Command queue helper (used by control.go)
// -----------------------------------------------------------------------

// enqueue submits cmd to run on the Run goroutine. If the queue is full it
// returns ErrOutOfMemory: the resource that ran out is the slot for the
// operation's pending state.
func (r *Replica) enqueue(cmd func(*Replica)) error {
	select {
	case r.commands <- cmd:
		return nil
	default:
		return ErrOutOfMemory
	}
}
