// Command supplicantctl is a CLI client for the wpa_supplicant peer tracked
// by supplicantd. It talks to the peer directly over the system D-Bus rather
// than through supplicantd itself, so it works even when supplicantd is not
// running.
package main

import "github.com/dantte-lp/gosupplicant/cmd/supplicantctl/commands"

func main() {
	commands.Execute()
}
