package supplicant

import "log/slog"

// The interface tracker. A top-level property bag is applied key-by-key, in
// delivery order; some keys (Scanning) emit a callback inline during that
// walk rather than waiting for the terminator.

// Interface is one managed wireless interface.
type Interface struct {
	Path         string
	Ifname       string
	Driver       string
	Bridge       string
	Capabilities capabilityBag
	State        State
	Scanning     bool
	APScan       int

	// NetworkTable exclusively owns Networks; BSSIndex is a secondary,
	// non-owning index from a BSS's path to the Network that owns it.
	NetworkTable map[string]*Network
	BSSIndex     map[string]*Network

	addedEmitted bool
}

// NewInterface allocates an Interface with its indices ready for use.
func NewInterface(path string) *Interface {
	return &Interface{
		Path:         path,
		NetworkTable: make(map[string]*Network),
		BSSIndex:     make(map[string]*Network),
	}
}

// ApplyInterfaceProperties applies an ordered top-level property bag
// to iface. It returns the object paths of any BSSs referenced by the bag
// (via CurrentBSS or the BSSs array) that are not yet present in iface's
// index and therefore need a follow-up GetAll; the caller (replica.go) owns
// issuing that bus call, since this function performs no I/O.
func ApplyInterfaceProperties(iface *Interface, props []Property, callbacks Callbacks, logger *slog.Logger) (pendingBSSFetches []string) {
	for _, p := range props {
		if paths := applyInterfaceProperty(iface, p, callbacks, logger); len(paths) > 0 {
			pendingBSSFetches = append(pendingBSSFetches, paths...)
		}
	}

	logCapabilityDump(iface, logger)
	if !iface.addedEmitted {
		iface.addedEmitted = true
		callbacks.emitInterfaceAdded(iface)
	}

	return pendingBSSFetches
}

func applyInterfaceProperty(iface *Interface, p Property, callbacks Callbacks, logger *slog.Logger) []string {
	switch p.Key {
	case "Capabilities":
		bag, ok := propCapabilityBag(p.Value)
		if !ok {
			return nil
		}
		iface.Capabilities = capabilityBag{
			KeyMgmt:  applyKeyMgmt(bag["KeyMgmt"]),
			AuthAlg:  applyAuthAlg(bag["AuthAlg"]),
			Protocol: applyProtocol(bag["Protocol"]),
			Group:    applyGroupCipher(bag["Group"]),
			Pairwise: applyPairwiseCipher(bag["Pairwise"]),
			Scan:     applyScanCapability(bag["Scan"]),
			Modes:    applyModeCapability(bag["Modes"]),
		}

	case "State":
		s, ok := propString(p.Value)
		if !ok {
			return nil
		}
		iface.State = parseState(s)

	case "Scanning":
		b, ok := propBool(p.Value)
		if !ok {
			return nil
		}
		iface.Scanning = b
		if b {
			// Fires inline, potentially before this bag's terminator emits
			// InterfaceAdded for a freshly-discovered interface.
			callbacks.emitScanStarted(iface)
		}

	case "ApScan":
		switch n := p.Value.(type) {
		case int32:
			iface.APScan = int(n)
		case int:
			iface.APScan = n
		}

	case "Ifname":
		s, ok := propString(p.Value)
		if ok {
			iface.Ifname = s
		}

	case "Driver":
		s, ok := propString(p.Value)
		if ok {
			iface.Driver = s
		}

	case "BridgeIfname":
		s, ok := propString(p.Value)
		if ok {
			iface.Bridge = s
		}

	case "CurrentBSS":
		path, ok := propString(p.Value)
		if !ok || isNullPath(path) {
			return nil
		}
		if _, present := iface.BSSIndex[path]; !present {
			return []string{path}
		}

	case "CurrentNetwork":
		// Peer configuration object; observational only.
		if logger != nil {
			logger.Debug("current network observed", slog.String("iface", iface.Path))
		}

	case "BSSs":
		paths, ok := propStringSlice(p.Value)
		if !ok {
			return nil
		}
		var pending []string
		for _, path := range paths {
			if isNullPath(path) {
				continue
			}
			if _, present := iface.BSSIndex[path]; !present {
				pending = append(pending, path)
			}
		}
		return pending

	case "Networks":
		// Peer-persisted configuration paths; no retained state.

	case "Blobs":
		// Ignored.

	default:
		if logger != nil {
			logger.Debug("unrecognized interface property", slog.String("key", p.Key))
		}
	}

	return nil
}

// isNullPath reports whether path is the "/" sentinel used throughout the
// peer's object model to mean "no object".
func isNullPath(path string) bool {
	return path == "/"
}

func logCapabilityDump(iface *Interface, logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("interface capabilities",
		slog.String("iface", iface.Path),
		slog.Uint64("key_mgmt", uint64(iface.Capabilities.KeyMgmt)),
		slog.Uint64("auth_alg", uint64(iface.Capabilities.AuthAlg)),
		slog.Uint64("protocol", uint64(iface.Capabilities.Protocol)),
		slog.Uint64("group", uint64(iface.Capabilities.Group)),
		slog.Uint64("pairwise", uint64(iface.Capabilities.Pairwise)),
		slog.Uint64("scan", uint64(iface.Capabilities.Scan)),
		slog.Uint64("modes", uint64(iface.Capabilities.Modes)),
	)
}
