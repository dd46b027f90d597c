// Package supplicant maintains a live, eventually-consistent replica of a
// wpa_supplicant peer's object tree (interfaces, BSSs, and the logical
// networks derived from them) over the D-Bus system bus, and exposes a
// narrow callback surface and a small set of control operations to an
// upper connection-manager layer.
package supplicant
