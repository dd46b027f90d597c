package supplicant

import "log/slog"

// The BSS builder consumes one ordered property bag per BSS and produces a
// fully-populated BSS record, deriving Security once the whole bag has been
// applied.

const (
	ssidMinLen = 1
	ssidMaxLen = 32
	bssidLen   = 6

	capabilityESS     = 0x0001
	capabilityIBSS    = 0x0002
	capabilityPrivacy = 0x0010
)

// BSS is a single observed access point.
type BSS struct {
	Path string

	// IfacePath is a non-owning back-reference to the owning Interface,
	// stored as a path rather than a pointer so Interface/Network/BSS never
	// form an owning cycle.
	IfacePath string

	BSSID    [bssidLen]byte
	HasBSSID bool

	SSID    [ssidMaxLen]byte
	SSIDLen int

	Frequency uint16
	Mode      Mode
	Security  Security
	Privacy   bool
	PSK       bool
	IEEE8021X bool
}

// BuildBSS applies an ordered property bag to a new BSS and derives its
// Security classification at the end. It is robust to any subset of keys
// being present, in any order: unrecognized keys are logged at debug level
// and otherwise ignored, and malformed information elements never propagate
// an error.
func BuildBSS(path, ifacePath string, props []Property, logger *slog.Logger) *BSS {
	bss := &BSS{Path: path, IfacePath: ifacePath}

	for _, p := range props {
		applyBSSProperty(bss, p, logger)
	}

	bss.Security = deriveSecurity(bss.IEEE8021X, bss.PSK, bss.Privacy)
	return bss
}

func applyBSSProperty(bss *BSS, p Property, logger *slog.Logger) {
	switch p.Key {
	case "BSSID":
		b, ok := propBytes(p.Value)
		if !ok || len(b) != bssidLen {
			return
		}
		copy(bss.BSSID[:], b)
		bss.HasBSSID = true

	case "SSID":
		b, ok := propBytes(p.Value)
		if !ok || len(b) < ssidMinLen || len(b) > ssidMaxLen {
			bss.SSID = [ssidMaxLen]byte{}
			bss.SSIDLen = 0
			return
		}
		bss.SSID = [ssidMaxLen]byte{}
		copy(bss.SSID[:], b)
		bss.SSIDLen = len(b)

	case "Capabilities":
		bits, ok := propUint16(p.Value)
		if !ok {
			return
		}
		if bits&capabilityESS != 0 {
			bss.Mode = ModeInfrastructure
		} else if bits&capabilityIBSS != 0 {
			bss.Mode = ModeAdHoc
		}
		if bits&capabilityPrivacy != 0 {
			bss.Privacy = true
		}

	case "Mode":
		s, ok := propString(p.Value)
		if !ok {
			return
		}
		bss.Mode = parseBSSMode(s)

	case "Frequency":
		f, ok := propUint16(p.Value)
		if !ok {
			return
		}
		bss.Frequency = f

	case "Privacy":
		b, ok := propBool(p.Value)
		if !ok {
			return
		}
		bss.Privacy = b

	case "RSNIE":
		b, ok := propBytes(p.Value)
		if !ok {
			return
		}
		flags := ParseRSNIE(b)
		bss.IEEE8021X = bss.IEEE8021X || flags.ieee8021x
		bss.PSK = bss.PSK || flags.psk

	case "WPAIE":
		b, ok := propBytes(p.Value)
		if !ok {
			return
		}
		flags := ParseWPAIE(b)
		bss.IEEE8021X = bss.IEEE8021X || flags.ieee8021x
		bss.PSK = bss.PSK || flags.psk

	case "WPSIE":
		// Recognized but contributes no security flags.

	case "Signal", "Level", "MaxRate":
		// Read but not retained.

	default:
		if logger != nil {
			logger.Debug("unrecognized BSS property", slog.String("key", p.Key))
		}
	}
}
