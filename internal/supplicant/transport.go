package supplicant

import (
	"fmt"
	"sort"

	"github.com/godbus/dbus/v5"
)

// The wire/domain boundary: turns *dbus.Conn machinery and dbus.Variant
// payloads into the plain Go types (ordered []Property, string paths) that
// ie.go/bss.go/network.go/iface.go consume. The domain layer never imports
// dbus.Variant.

// busConn is the subset of *dbus.Conn the replica depends on, extracted so
// tests can drive the dispatch loop with a fake bus instead of a real
// system bus connection.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

var _ busConn = (*dbus.Conn)(nil)

// getAllProperties issues a synchronous GetAll call against obj for iface
// and returns the result as an ordered property bag, sorted by key for
// determinism; the bag consumers are order-independent, so any fixed order
// works.
func getAllProperties(obj dbus.BusObject, iface string) ([]Property, error) {
	call := obj.Call(propertiesInterface+".GetAll", 0, iface)
	if call.Err != nil {
		return nil, fmt.Errorf("GetAll %s: %w: %w", iface, ErrTransport, call.Err)
	}

	var raw map[string]dbus.Variant
	if err := call.Store(&raw); err != nil {
		return nil, fmt.Errorf("decode GetAll %s reply: %w: %w", iface, ErrInvalidReply, err)
	}

	return variantMapToBag(raw), nil
}

// variantMapToBag converts a GetAll-shaped dict into a sorted property bag.
func variantMapToBag(raw map[string]dbus.Variant) []Property {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bag := make([]Property, 0, len(keys))
	for _, k := range keys {
		bag = append(bag, Property{Key: k, Value: convertVariantValue(raw[k])})
	}
	return bag
}

// convertVariantValue decodes a single dbus.Variant into the plain Go
// representation the domain layer expects: object paths become strings,
// object-path arrays become string slices, and a nested a{sv} (the
// "Capabilities" shape) becomes map[string][]string.
func convertVariantValue(v dbus.Variant) any {
	switch val := v.Value().(type) {
	case dbus.ObjectPath:
		return string(val)
	case []dbus.ObjectPath:
		out := make([]string, len(val))
		for i, p := range val {
			out[i] = string(p)
		}
		return out
	case map[string]dbus.Variant:
		out := make(map[string][]string, len(val))
		for k, nested := range val {
			if ss, ok := nested.Value().([]string); ok {
				out[k] = ss
			}
		}
		return out
	default:
		return val
	}
}

// signalObjectPath decodes a single-object-path signal body
// (InterfaceRemoved, BSSRemoved, NetworkRemoved).
func signalObjectPath(sig *dbus.Signal) (string, bool) {
	if len(sig.Body) < 1 {
		return "", false
	}
	p, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return "", false
	}
	return string(p), true
}

// signalObjectWithProperties decodes a (path, a{sv}) signal body
// (InterfaceAdded, InterfaceCreated, BSSAdded, NetworkAdded).
func signalObjectWithProperties(sig *dbus.Signal) (string, []Property, bool) {
	if len(sig.Body) < 2 {
		return "", nil, false
	}
	p, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return "", nil, false
	}
	raw, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return "", nil, false
	}
	return string(p), variantMapToBag(raw), true
}

// signalPropertiesChanged decodes a standard
// org.freedesktop.DBus.Properties.PropertiesChanged body: (interface string,
// changed a{sv}, invalidated as). Invalidated property names are returned
// for logging only; this replica has no defined behavior for them.
func signalPropertiesChanged(sig *dbus.Signal) (iface string, changed []Property, invalidated []string, ok bool) {
	if len(sig.Body) < 3 {
		return "", nil, nil, false
	}
	iface, ok1 := sig.Body[0].(string)
	raw, ok2 := sig.Body[1].(map[string]dbus.Variant)
	inv, ok3 := sig.Body[2].([]string)
	if !ok1 || !ok2 || !ok3 {
		return "", nil, nil, false
	}
	return iface, variantMapToBag(raw), inv, true
}

// signalNameOwnerChanged decodes the bus daemon's NameOwnerChanged body:
// (name, old_owner, new_owner string).
func signalNameOwnerChanged(sig *dbus.Signal) (name, oldOwner, newOwner string, ok bool) {
	if len(sig.Body) < 3 {
		return "", "", "", false
	}
	name, ok1 := sig.Body[0].(string)
	oldOwner, ok2 := sig.Body[1].(string)
	newOwner, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return "", "", "", false
	}
	return name, oldOwner, newOwner, true
}

// signalScanDone decodes a ScanDone signal body: (success bool). The
// interface is identified by sig.Path, not by an argument.
func signalScanDone(sig *dbus.Signal) (success bool, ok bool) {
	if len(sig.Body) < 1 {
		return false, false
	}
	success, ok = sig.Body[0].(bool)
	return success, ok
}
