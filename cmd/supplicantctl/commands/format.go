package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dantte-lp/gosupplicant/internal/supplicant"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not
// supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// interfaceView is the flattened, JSON/table-friendly projection of an
// *supplicant.Interface and its networks.
type interfaceView struct {
	Path     string        `json:"path"`
	Ifname   string        `json:"ifname"`
	Driver   string        `json:"driver"`
	State    string        `json:"state"`
	Scanning bool          `json:"scanning"`
	Networks []networkView `json:"networks"`
}

type networkView struct {
	Group string `json:"group"`
	Name  string `json:"name"`
	Mode  string `json:"mode"`
	BSSes int    `json:"bss_count"`
}

func newInterfaceView(iface *supplicant.Interface) interfaceView {
	v := interfaceView{
		Path:     iface.Path,
		Ifname:   iface.Ifname,
		Driver:   iface.Driver,
		State:    iface.State.String(),
		Scanning: iface.Scanning,
	}
	for _, net := range iface.NetworkTable {
		v.Networks = append(v.Networks, networkView{
			Group: net.Group,
			Name:  net.Name,
			Mode:  net.Mode.String(),
			BSSes: len(net.BSSTable),
		})
	}
	return v
}

func formatInterfaces(ifaces []*supplicant.Interface, format string) (string, error) {
	views := make([]interfaceView, 0, len(ifaces))
	for _, iface := range ifaces {
		views = append(views, newInterfaceView(iface))
	}

	switch format {
	case formatJSON:
		return formatInterfacesJSON(views)
	case formatTable:
		return formatInterfacesTable(views)
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatInterfacesJSON(views []interfaceView) (string, error) {
	b, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal interfaces: %w", err)
	}
	return string(b) + "\n", nil
}

func formatInterfacesTable(views []interfaceView) (string, error) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "IFNAME\tSTATE\tSCANNING\tNETWORKS\tDRIVER\tPATH")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\t%s\n",
			v.Ifname, v.State, v.Scanning, len(v.Networks), v.Driver, v.Path)
	}

	if err := tw.Flush(); err != nil {
		return "", fmt.Errorf("flush table: %w", err)
	}
	return sb.String(), nil
}
