package supplicant

import (
	"encoding/hex"
	"log/slog"
)

// The network indexer. A Network is the equivalence class of BSSs sharing
// (SSID bytes, mode, security); group key and display name are pure
// functions of a BSS's already-derived fields, so they live here as free
// functions rather than Network methods.

// Network is a logical grouping of BSSs sharing an identical (SSID, mode,
// security) fingerprint.
type Network struct {
	Group string
	Name  string
	Mode  Mode

	// IfacePath is a non-owning back-reference, mirroring BSS.IfacePath.
	IfacePath string

	BSSTable map[string]*BSS
}

// groupKey computes a network's identifying key: the lowercase hex dump of the SSID
// bytes (or the literal "hidden" for an empty or zero-first-byte SSID),
// followed by an optional "_<mode>" suffix and an optional "_<security>"
// suffix.
func groupKey(bss *BSS) string {
	var key string
	if bss.SSIDLen > 0 && bss.SSID[0] != 0 {
		key = hex.EncodeToString(bss.SSID[:bss.SSIDLen])
	} else {
		key = "hidden"
	}

	if suffix, ok := bss.Mode.groupKeySuffix(); ok {
		key += "_" + suffix
	}
	if suffix, ok := bss.Security.groupKeySuffix(); ok {
		key += "_" + suffix
	}
	return key
}

// isPrintableASCII reports whether b is a printable, non-control ASCII byte.
func isPrintableASCII(b byte) bool {
	return b >= 0x20 && b < 0x7f
}

// displayName derives a network's human-readable, non-identifying name: printable
// ASCII bytes pass through, everything else becomes a space. An empty or
// zero-first-byte SSID yields the empty string.
func displayName(bss *BSS) string {
	if bss.SSIDLen == 0 || bss.SSID[0] == 0 {
		return ""
	}
	out := make([]byte, bss.SSIDLen)
	for i := 0; i < bss.SSIDLen; i++ {
		b := bss.SSID[i]
		if isPrintableASCII(b) {
			out[i] = b
		} else {
			out[i] = ' '
		}
	}
	return string(out)
}

// InsertBSS indexes a freshly-built BSS: compute the BSS's group key,
// find-or-create its Network (emitting NetworkAdded on creation), and record
// it in both the network's BSSTable and the interface's BSSIndex.
func (iface *Interface) InsertBSS(bss *BSS, callbacks Callbacks, logger *slog.Logger) {
	key := groupKey(bss)

	net, ok := iface.NetworkTable[key]
	if !ok {
		net = &Network{
			Group:     key,
			Name:      displayName(bss),
			Mode:      bss.Mode,
			IfacePath: iface.Path,
			BSSTable:  make(map[string]*BSS),
		}
		iface.NetworkTable[key] = net
		if logger != nil {
			logger.Debug("network created", slog.String("group", key))
		}
		callbacks.emitNetworkAdded(net)
	}

	iface.BSSIndex[bss.Path] = net
	net.BSSTable[bss.Path] = bss
}

// RemoveBSS drops the BSS at path from both indices,
// and if its Network's BSSTable is now empty, remove and destroy the
// Network, emitting NetworkRemoved.
func (iface *Interface) RemoveBSS(path string, callbacks Callbacks) {
	net, ok := iface.BSSIndex[path]
	if !ok {
		return
	}

	delete(iface.BSSIndex, path)
	delete(net.BSSTable, path)

	if len(net.BSSTable) == 0 {
		delete(iface.NetworkTable, net.Group)
		callbacks.emitNetworkRemoved(net)
	}
}
