// ABOUTME: Version and product identity constants
// ABOUTME: Referenced by the CLI, remote server and mDNS advertisement
package version

const (
	// Version is the release version of this build.
	Version = "0.1.0"

	// Product is the user-facing product name.
	Product = "Tapedeck"

	// Manufacturer identifies the vendor in discovery records.
	Manufacturer = "Tapedeck Audio"
)
