package supplicant

import "testing"

func bssWithSSID(path, ssid string, mode Mode, sec Security) *BSS {
	b := &BSS{Path: path, Mode: mode, Security: sec}
	copy(b.SSID[:], ssid)
	b.SSIDLen = len(ssid)
	return b
}

func TestGroupKey_GuestExample(t *testing.T) {
	bss := bssWithSSID("/bss/0", "Guest", ModeInfrastructure, SecurityPSK)
	got := groupKey(bss)
	want := "4775657374_infra_psk"
	if got != want {
		t.Fatalf("groupKey = %q, want %q", got, want)
	}
}

func TestGroupKey_Hidden(t *testing.T) {
	bss := &BSS{Path: "/bss/0", Mode: ModeInfrastructure, Security: SecurityNone}
	got := groupKey(bss)
	if got != "hidden_infra_none" {
		t.Fatalf("groupKey = %q, want hidden_infra_none", got)
	}
}

func TestDisplayName_NonPrintableReplacedWithSpace(t *testing.T) {
	bss := &BSS{Path: "/bss/0"}
	bss.SSID[0] = 'A'
	bss.SSID[1] = 0x01
	bss.SSID[2] = 'B'
	bss.SSIDLen = 3

	if got := displayName(bss); got != "A B" {
		t.Fatalf("displayName = %q, want %q", got, "A B")
	}
}

func TestDisplayName_EmptySSID(t *testing.T) {
	bss := &BSS{Path: "/bss/0"}
	if got := displayName(bss); got != "" {
		t.Fatalf("displayName = %q, want empty", got)
	}
}

func TestInterface_InsertBSS_CoalescesIntoOneNetwork(t *testing.T) {
	iface := NewInterface("/iface/0")
	var added, removed int
	cb := Callbacks{
		NetworkAdded:   func(*Network) { added++ },
		NetworkRemoved: func(*Network) { removed++ },
	}

	a := bssWithSSID("/bss/a", "Guest", ModeInfrastructure, SecurityPSK)
	b := bssWithSSID("/bss/b", "Guest", ModeInfrastructure, SecurityPSK)
	a.BSSID = [6]byte{1, 2, 3, 4, 5, 6}
	b.BSSID = [6]byte{6, 5, 4, 3, 2, 1}

	iface.InsertBSS(a, cb, nil)
	iface.InsertBSS(b, cb, nil)

	if added != 1 {
		t.Fatalf("NetworkAdded fired %d times, want 1", added)
	}
	if len(iface.NetworkTable) != 1 {
		t.Fatalf("network_table has %d entries, want 1", len(iface.NetworkTable))
	}
	net := iface.BSSIndex["/bss/a"]
	if len(net.BSSTable) != 2 {
		t.Fatalf("bss_table has %d entries, want 2", len(net.BSSTable))
	}

	iface.RemoveBSS("/bss/a", cb)
	if removed != 0 {
		t.Fatal("network removed too early: one BSS remains")
	}
	iface.RemoveBSS("/bss/b", cb)
	if removed != 1 {
		t.Fatalf("NetworkRemoved fired %d times, want 1", removed)
	}
	if len(iface.NetworkTable) != 0 {
		t.Fatalf("network_table has %d entries, want 0 after last BSS removed", len(iface.NetworkTable))
	}
}

func TestInterface_RemoveBSS_AbsentPathIsNoop(t *testing.T) {
	iface := NewInterface("/iface/0")
	iface.RemoveBSS("/bss/never-added", Callbacks{})
	// No panic, no callback: success.
}

func TestInterface_DistinctTriplesProduceDistinctNetworks(t *testing.T) {
	iface := NewInterface("/iface/0")
	a := bssWithSSID("/bss/a", "Guest", ModeInfrastructure, SecurityPSK)
	b := bssWithSSID("/bss/b", "Guest", ModeInfrastructure, SecurityNone)

	iface.InsertBSS(a, Callbacks{}, nil)
	iface.InsertBSS(b, Callbacks{}, nil)

	if len(iface.NetworkTable) != 2 {
		t.Fatalf("network_table has %d entries, want 2 for differing security", len(iface.NetworkTable))
	}
}

func TestInterface_NetworkNameAndModeFixedAtCreation(t *testing.T) {
	iface := NewInterface("/iface/0")
	a := bssWithSSID("/bss/a", "Guest", ModeInfrastructure, SecurityPSK)
	iface.InsertBSS(a, Callbacks{}, nil)

	b := bssWithSSID("/bss/b", "Guest", ModeInfrastructure, SecurityPSK)
	// b shares a's (SSID, mode, security) triple, so it joins a's network;
	// inserting it must leave the name and mode recorded at creation as is.
	iface.InsertBSS(b, Callbacks{}, nil)

	net := iface.BSSIndex["/bss/a"]
	if net.Name != "Guest" {
		t.Fatalf("network name = %q, want Guest", net.Name)
	}
	if net.Mode != ModeInfrastructure {
		t.Fatalf("network mode = %v, want infrastructure", net.Mode)
	}
}
