package supplicant

// Closed enumerations and capability bitsets of the data model. Each tagged
// variant is a small unsigned integer with a total String() method and a
// parse table: no bare ints escape the package, and every conversion table
// is exhaustive rather than falling through to a guess.

// Mode is the operating mode of an interface or BSS.
type Mode uint8

const (
	ModeUnknown Mode = iota
	ModeInfrastructure
	ModeAdHoc
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeInfrastructure:
		return "infrastructure"
	case ModeAdHoc:
		return "ad-hoc"
	default:
		return "unknown"
	}
}

// parseBSSMode maps the wire vocabulary used by the BSS "Mode" property
// ("infrastructure" / "ad-hoc") to a Mode. Anything else is ModeUnknown.
func parseBSSMode(s string) Mode {
	switch s {
	case "infrastructure":
		return ModeInfrastructure
	case "ad-hoc":
		return ModeAdHoc
	default:
		return ModeUnknown
	}
}

// groupKeySuffix returns the short vocabulary used when building a network
// group key ("infra" / "adhoc"), distinct from the wire vocabulary above.
// A Mode with no defined suffix (ModeUnknown) contributes nothing to the key.
func (m Mode) groupKeySuffix() (string, bool) {
	switch m {
	case ModeInfrastructure:
		return "infra", true
	case ModeAdHoc:
		return "adhoc", true
	default:
		return "", false
	}
}

// Security is the derived security posture of a BSS.
type Security uint8

const (
	SecurityUnknown Security = iota
	SecurityNone
	SecurityWEP
	SecurityPSK
	SecurityIEEE8021X
)

// String returns the human-readable name of the security classification.
func (s Security) String() string {
	switch s {
	case SecurityNone:
		return "none"
	case SecurityWEP:
		return "wep"
	case SecurityPSK:
		return "psk"
	case SecurityIEEE8021X:
		return "ieee8021x"
	default:
		return "unknown"
	}
}

// groupKeySuffix returns the vocabulary used in a network group key.
func (s Security) groupKeySuffix() (string, bool) {
	switch s {
	case SecurityNone:
		return "none", true
	case SecurityWEP:
		return "wep", true
	case SecurityPSK:
		return "psk", true
	case SecurityIEEE8021X:
		return "ieee8021x", true
	default:
		return "", false
	}
}

// deriveSecurity classifies a BSS once its whole property bag has been
// applied: 8021X > PSK > (privacy => WEP) > none.
func deriveSecurity(ieee8021x, psk, privacy bool) Security {
	switch {
	case ieee8021x:
		return SecurityIEEE8021X
	case psk:
		return SecurityPSK
	case privacy:
		return SecurityWEP
	default:
		return SecurityNone
	}
}

// State is the operational state of a managed interface.
type State uint8

const (
	StateUnknown State = iota
	StateDisconnected
	StateInactive
	StateScanning
	StateAuthenticating
	StateAssociating
	StateAssociated
	StateGroupHandshake
	State4WayHandshake
	StateCompleted
)

// String returns the wire-compatible name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateInactive:
		return "inactive"
	case StateScanning:
		return "scanning"
	case StateAuthenticating:
		return "authenticating"
	case StateAssociating:
		return "associating"
	case StateAssociated:
		return "associated"
	case StateGroupHandshake:
		return "group_handshake"
	case State4WayHandshake:
		return "4way_handshake"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// parseState maps the wire "State" property string to a State. Unrecognized
// values map to StateUnknown rather than erroring: malformed or unexpected
// field content is logged and ignored, never faulted on.
func parseState(s string) State {
	switch s {
	case "disconnected":
		return StateDisconnected
	case "inactive":
		return StateInactive
	case "scanning":
		return StateScanning
	case "authenticating":
		return StateAuthenticating
	case "associating":
		return StateAssociating
	case "associated":
		return StateAssociated
	case "group_handshake":
		return StateGroupHandshake
	case "4way_handshake":
		return State4WayHandshake
	case "completed":
		return StateCompleted
	default:
		return StateUnknown
	}
}

// -----------------------------------------------------------------------
// Capability bitsets
// -----------------------------------------------------------------------

// KeyMgmt is a bitset of supported key-management suites.
type KeyMgmt uint32

const (
	KeyMgmtNone KeyMgmt = 1 << iota
	KeyMgmtIEEE8021X
	KeyMgmtWPANone
	KeyMgmtWPAPSK
	KeyMgmtWPAEAP
	KeyMgmtWPS
)

var keyMgmtStrings = map[string]KeyMgmt{
	"none":      KeyMgmtNone,
	"ieee8021x": KeyMgmtIEEE8021X,
	"wpa-none":  KeyMgmtWPANone,
	"wpa-psk":   KeyMgmtWPAPSK,
	"wpa-eap":   KeyMgmtWPAEAP,
	"wps":       KeyMgmtWPS,
}

// AuthAlg is a bitset of supported authentication algorithms.
type AuthAlg uint32

const (
	AuthAlgOpen AuthAlg = 1 << iota
	AuthAlgShared
	AuthAlgLeap
)

var authAlgStrings = map[string]AuthAlg{
	"open":   AuthAlgOpen,
	"shared": AuthAlgShared,
	"leap":   AuthAlgLeap,
}

// Protocol is a bitset of supported WPA/RSN protocol versions.
type Protocol uint32

const (
	ProtocolWPA Protocol = 1 << iota
	ProtocolRSN
)

var protocolStrings = map[string]Protocol{
	"wpa": ProtocolWPA,
	"rsn": ProtocolRSN,
}

// GroupCipher is a bitset of supported group ciphers.
type GroupCipher uint32

const (
	GroupCipherWEP40 GroupCipher = 1 << iota
	GroupCipherWEP104
	GroupCipherTKIP
	GroupCipherCCMP
)

var groupCipherStrings = map[string]GroupCipher{
	"wep40":  GroupCipherWEP40,
	"wep104": GroupCipherWEP104,
	"tkip":   GroupCipherTKIP,
	"ccmp":   GroupCipherCCMP,
}

// PairwiseCipher is a bitset of supported pairwise ciphers.
type PairwiseCipher uint32

const (
	PairwiseCipherNone PairwiseCipher = 1 << iota
	PairwiseCipherTKIP
	PairwiseCipherCCMP
)

var pairwiseCipherStrings = map[string]PairwiseCipher{
	"none": PairwiseCipherNone,
	"tkip": PairwiseCipherTKIP,
	"ccmp": PairwiseCipherCCMP,
}

// ScanCapability is a bitset of supported scan types.
type ScanCapability uint32

const (
	ScanCapabilityActive ScanCapability = 1 << iota
	ScanCapabilityPassive
	ScanCapabilitySSID
)

var scanCapabilityStrings = map[string]ScanCapability{
	"active":  ScanCapabilityActive,
	"passive": ScanCapabilityPassive,
	"ssid":    ScanCapabilitySSID,
}

// ModeCapability is a bitset of supported interface modes.
type ModeCapability uint32

const (
	ModeCapabilityInfra ModeCapability = 1 << iota
	ModeCapabilityIBSS
	ModeCapabilityAP
)

var modeCapabilityStrings = map[string]ModeCapability{
	"infrastructure": ModeCapabilityInfra,
	"ad-hoc":         ModeCapabilityIBSS,
	"ap":             ModeCapabilityAP,
}

// EAPMethodSet is a bitset of supported EAP methods, aggregated process-wide
// from the root "EapMethods" property at bootstrap.
type EAPMethodSet uint32

const (
	EAPMethodMD5 EAPMethodSet = 1 << iota
	EAPMethodTLS
	EAPMethodMSCHAPV2
	EAPMethodPEAP
	EAPMethodTTLS
	EAPMethodGTC
	EAPMethodOTP
	EAPMethodLEAP
	EAPMethodWSC
)

var eapMethodStrings = map[string]EAPMethodSet{
	"MD5":      EAPMethodMD5,
	"TLS":      EAPMethodTLS,
	"MSCHAPV2": EAPMethodMSCHAPV2,
	"PEAP":     EAPMethodPEAP,
	"TTLS":     EAPMethodTTLS,
	"GTC":      EAPMethodGTC,
	"OTP":      EAPMethodOTP,
	"LEAP":     EAPMethodLEAP,
	"WSC":      EAPMethodWSC,
}

// capabilityBag is the decoded form of the nested "Capabilities" property:
// one string array per class, each mapped through its table above.
type capabilityBag struct {
	KeyMgmt  KeyMgmt
	AuthAlg  AuthAlg
	Protocol Protocol
	Group    GroupCipher
	Pairwise PairwiseCipher
	Scan     ScanCapability
	Modes    ModeCapability
}

func applyKeyMgmt(values []string) KeyMgmt {
	var out KeyMgmt
	for _, v := range values {
		out |= keyMgmtStrings[v]
	}
	return out
}

func applyAuthAlg(values []string) AuthAlg {
	var out AuthAlg
	for _, v := range values {
		out |= authAlgStrings[v]
	}
	return out
}

func applyProtocol(values []string) Protocol {
	var out Protocol
	for _, v := range values {
		out |= protocolStrings[v]
	}
	return out
}

func applyGroupCipher(values []string) GroupCipher {
	var out GroupCipher
	for _, v := range values {
		out |= groupCipherStrings[v]
	}
	return out
}

func applyPairwiseCipher(values []string) PairwiseCipher {
	var out PairwiseCipher
	for _, v := range values {
		out |= pairwiseCipherStrings[v]
	}
	return out
}

func applyScanCapability(values []string) ScanCapability {
	var out ScanCapability
	for _, v := range values {
		out |= scanCapabilityStrings[v]
	}
	return out
}

func applyModeCapability(values []string) ModeCapability {
	var out ModeCapability
	for _, v := range values {
		out |= modeCapabilityStrings[v]
	}
	return out
}

func applyEAPMethods(values []string) EAPMethodSet {
	var out EAPMethodSet
	for _, v := range values {
		out |= eapMethodStrings[v]
	}
	return out
}
