// Package facts collects host metadata for the provisioning report.
package facts

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hostprep/hostprep/pkg/distro"
)

// HostFacts describes the machine a run provisioned.
type HostFacts struct {
	OSName   string `json:"os_name"`
	Kernel   string `json:"kernel"`
	Arch     string `json:"arch"`
	Hostname string `json:"hostname"`
}

// Collect gathers kernel, architecture and hostname facts and combines
// them with the resolved OS identity.
func Collect(identity distro.OSIdentity) (HostFacts, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return HostFacts{}, fmt.Errorf("failed to read uname: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return HostFacts{}, fmt.Errorf("failed to read hostname: %w", err)
	}

	osName := identity.PrettyName
	if osName == "" {
		osName = identity.ID
	}

	return HostFacts{
		OSName:   osName,
		Kernel:   unix.ByteSliceToString(uts.Release[:]),
		Arch:     unix.ByteSliceToString(uts.Machine[:]),
		Hostname: hostname,
	}, nil
}
