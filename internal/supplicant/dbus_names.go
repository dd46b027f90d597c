package supplicant

import "github.com/godbus/dbus/v5"

// Well-known bus name, object path, and interface names for the
// wpa_supplicant1 D-Bus API.
const (
	ServiceName = "fi.w1.wpa_supplicant1"

	RootInterface      = "fi.w1.wpa_supplicant1"
	InterfaceInterface = RootInterface + ".Interface"
	BSSInterface       = InterfaceInterface + ".BSS"
	NetworkInterface   = InterfaceInterface + ".Network"
	WPSInterface       = InterfaceInterface + ".WPS"
	BlobInterface      = InterfaceInterface + ".Blob"

	propertiesInterface = "org.freedesktop.DBus.Properties"
	busDaemonInterface  = "org.freedesktop.DBus"
	busDaemonMember     = "NameOwnerChanged"
)

// RootPath is the peer's root object path.
var RootPath = dbus.ObjectPath("/fi/w1/wpa_supplicant1")

// matchRules returns the bus-daemon match rule installed when Run starts.
// Rules for .Interface.WPS, .Interface.Network, and .Interface.Blob are
// installed too (see interfaceMatchRules) but have no defined behavior
// beyond debug logging.
func matchRules(serviceName string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(busDaemonInterface),
		dbus.WithMatchMember(busDaemonMember),
		dbus.WithMatchArg(0, serviceName),
	}
}

func interfaceMatchRules() [][]dbus.MatchOption {
	ifaces := []string{
		RootInterface,
		InterfaceInterface,
		WPSInterface,
		BSSInterface,
		NetworkInterface,
		BlobInterface,
	}
	rules := make([][]dbus.MatchOption, 0, len(ifaces))
	for _, iface := range ifaces {
		rules = append(rules, []dbus.MatchOption{dbus.WithMatchInterface(iface)})
	}
	return rules
}
