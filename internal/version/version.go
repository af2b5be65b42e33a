// ABOUTME: Version and product identification
// ABOUTME: Reported by -version flags and the stream client/hello name
package version

const (
	// Product is the name shown in client/hello and usage output
	Product = "caplay"

	// Manufacturer is reported alongside the product name
	Manufacturer = "audiounit-go"
)

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=1.2.3"
var Version = "0.3.0"

// String returns the product and version, e.g. "caplay 0.3.0"
func String() string {
	return Product + " " + Version
}
