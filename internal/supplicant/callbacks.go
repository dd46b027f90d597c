package supplicant

// The outward callback surface. Every field is optional and every emit
// helper nil-checks before calling. Notably absent: BSSAdded/BSSRemoved.
// BSS lifecycle has no dedicated callback -- only Network, Interface, scan,
// and system-level changes are observable.

// Callbacks is the narrow, stable outward contract of the replica. All
// fields are optional; a nil field is simply not invoked. Every callback
// fires synchronously from the goroutine driving Replica.Run.
type Callbacks struct {
	// SystemReady fires after the first successful root GetAll terminator.
	// Idempotent: suppressed if the replica is already marked ready.
	SystemReady func()

	// SystemKilled fires after peer loss, or when Run returns (its context
	// cancelled) if the peer was available.
	SystemKilled func()

	// InterfaceAdded fires once per interface, after its first full
	// property bag has been applied.
	InterfaceAdded func(iface *Interface)

	// InterfaceRemoved fires before an interface's memory is freed, after
	// its owned networks and BSSs have been torn down (which emit their own
	// removals first).
	InterfaceRemoved func(iface *Interface)

	// ScanStarted fires when an interface's Scanning property is observed
	// true. This can fire before InterfaceAdded for a freshly-discovered
	// interface whose first property bag already carries Scanning=true.
	ScanStarted func(iface *Interface)

	// ScanFinished fires on a ScanDone signal from an interface.
	ScanFinished func(iface *Interface)

	// NetworkAdded fires when a BSS's group key resolves to a new Network.
	NetworkAdded func(net *Network)

	// NetworkRemoved fires when a Network's last BSS leaves.
	NetworkRemoved func(net *Network)
}

func (c Callbacks) emitSystemReady() {
	if c.SystemReady != nil {
		c.SystemReady()
	}
}

func (c Callbacks) emitSystemKilled() {
	if c.SystemKilled != nil {
		c.SystemKilled()
	}
}

func (c Callbacks) emitInterfaceAdded(iface *Interface) {
	if c.InterfaceAdded != nil {
		c.InterfaceAdded(iface)
	}
}

func (c Callbacks) emitInterfaceRemoved(iface *Interface) {
	if c.InterfaceRemoved != nil {
		c.InterfaceRemoved(iface)
	}
}

func (c Callbacks) emitScanStarted(iface *Interface) {
	if c.ScanStarted != nil {
		c.ScanStarted(iface)
	}
}

func (c Callbacks) emitScanFinished(iface *Interface) {
	if c.ScanFinished != nil {
		c.ScanFinished(iface)
	}
}

func (c Callbacks) emitNetworkAdded(net *Network) {
	if c.NetworkAdded != nil {
		c.NetworkAdded(net)
	}
}

func (c Callbacks) emitNetworkRemoved(net *Network) {
	if c.NetworkRemoved != nil {
		c.NetworkRemoved(net)
	}
}
