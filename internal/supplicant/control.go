package supplicant

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// The control-operation surface exposed to callers outside the Run
// goroutine. Every exported method here does a lock-free pre-check against
// the atomic available flag and then either rejects immediately or hands a
// closure to the command queue, where it actually runs serialized with
// signal handling.

// debugParams is the (level int32, timestamp bool, showkeys bool) struct
// the peer's root "Set DebugParams" call expects, D-Bus signature (ibb).
type debugParams struct {
	Level     int32
	Timestamp bool
	ShowKeys  bool
}

// CreateInterface asks the peer to manage ifname (optionally pinning
// driver), following a GetInterface-before-CreateInterface sequence: an
// interface the peer already manages is adopted rather than rejected as a
// duplicate. It returns
// immediately with an error only for the synchronous pre-checks
// (ErrPeerUnavailable, ErrOutOfMemory); the eventual outcome reaches the
// caller through completion, invoked from the Run goroutine.
func (r *Replica) CreateInterface(ifname, driver string, completion func(*Interface, error)) error {
	if !r.available.Load() {
		return ErrPeerUnavailable
	}
	return r.enqueue(func(r *Replica) {
		r.doCreateInterface(ifname, driver, completion)
	})
}

func (r *Replica) doCreateInterface(ifname, driver string, completion func(*Interface, error)) {
	obj := r.conn.Object(r.serviceName, r.rootPath)

	var existing dbus.ObjectPath
	getCall := obj.Call(RootInterface+".GetInterface", 0, ifname)
	if getCall.Err == nil && getCall.Store(&existing) == nil {
		r.resolveCreatedInterface(string(existing), completion)
		return
	}

	args := map[string]dbus.Variant{"Ifname": dbus.MakeVariant(ifname)}
	if driver != "" {
		args["Driver"] = dbus.MakeVariant(driver)
	}

	createCall := obj.Call(RootInterface+".CreateInterface", 0, args)
	if createCall.Err != nil {
		r.recordControlError("create_interface")
		completion(nil, fmt.Errorf("CreateInterface %s: %w: %w", ifname, ErrTransport, createCall.Err))
		return
	}

	var path dbus.ObjectPath
	if err := createCall.Store(&path); err != nil {
		r.recordControlError("create_interface")
		completion(nil, fmt.Errorf("CreateInterface %s reply: %w: %w", ifname, ErrInvalidReply, err))
		return
	}
	r.resolveCreatedInterface(string(path), completion)
}

func (r *Replica) resolveCreatedInterface(path string, completion func(*Interface, error)) {
	if iface, ok := r.interfaces[path]; ok {
		completion(iface, nil)
		return
	}
	iface, err := r.fetchAndApplyInterface(path)
	if err != nil {
		r.recordControlError("create_interface")
		completion(nil, fmt.Errorf("populate %s: %w", path, err))
		return
	}
	completion(iface, nil)
}

// RemoveInterface accepts the call but performs no peer RPC; interface
// removal is driven by the peer's own InterfaceRemoved signal.
func (r *Replica) RemoveInterface(iface *Interface, completion func(error)) error {
	if !r.available.Load() {
		return ErrPeerUnavailable
	}
	return r.enqueue(func(r *Replica) {
		completion(nil)
	})
}

// Scan requests a passive scan on iface.
func (r *Replica) Scan(iface *Interface, completion func(error)) error {
	if !r.available.Load() {
		return ErrPeerUnavailable
	}
	return r.enqueue(func(r *Replica) {
		obj := r.conn.Object(r.serviceName, dbus.ObjectPath(iface.Path))
		args := map[string]dbus.Variant{"Type": dbus.MakeVariant("passive")}
		call := obj.Call(InterfaceInterface+".Scan", 0, args)
		if call.Err != nil {
			r.recordControlError("scan")
			completion(fmt.Errorf("Scan %s: %w: %w", iface.Path, ErrTransport, call.Err))
			return
		}
		if r.metrics != nil {
			r.metrics.IncScanStarted()
		}
		completion(nil)
	})
}

// Disconnect requests that iface disconnect from its current network.
func (r *Replica) Disconnect(iface *Interface, completion func(error)) error {
	if !r.available.Load() {
		return ErrPeerUnavailable
	}
	return r.enqueue(func(r *Replica) {
		obj := r.conn.Object(r.serviceName, dbus.ObjectPath(iface.Path))
		call := obj.Call(InterfaceInterface+".Disconnect", 0)
		if call.Err != nil {
			r.recordControlError("disconnect")
			completion(fmt.Errorf("Disconnect %s: %w: %w", iface.Path, ErrTransport, call.Err))
			return
		}
		completion(nil)
	})
}

// SetDebugLevel sets the peer's combined debug level/timestamp/showkeys
// tuple, reusing the last-known timestamp and showkeys flags observed from
// the root property bag or a previous SetDebugLevel call rather than
// resetting them. It is a no-op, not an error, when the peer is currently
// unavailable: this operation is best-effort.
func (r *Replica) SetDebugLevel(level int32) error {
	if !r.available.Load() {
		return nil
	}
	return r.enqueue(func(r *Replica) {
		obj := r.conn.Object(r.serviceName, r.rootPath)
		params := debugParams{Level: level, Timestamp: r.debugTimestamp, ShowKeys: r.debugShowKeys}
		call := obj.Call(propertiesInterface+".Set", 0, RootInterface, "DebugParams", dbus.MakeVariant(params))
		if call.Err != nil {
			r.recordControlError("set_debug_level")
			r.logger.Warn("set debug level failed", slog.Int("level", int(level)), slog.String("error", call.Err.Error()))
			return
		}
		r.lastSetLevel = level
	})
}

func (r *Replica) recordControlError(op string) {
	if r.metrics != nil {
		r.metrics.IncControlError(op)
	}
}
