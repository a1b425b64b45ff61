package common

import "os"

// maxInstanceLength is the bridge-side limit on the instance part of an
// application identifier.
const maxInstanceLength = 19

// DetectDeviceType builds the application identifier registered on a Hue
// bridge: the app name plus the host it runs on, as in
// "smart-dial#kitchen-pi". Long hostnames are truncated to what the
// bridge accepts.
func DetectDeviceType(application string) string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return application
	}

	if len(hostname) > maxInstanceLength {
		hostname = hostname[:maxInstanceLength]
	}

	return application + "#" + hostname
}
