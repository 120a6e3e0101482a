package version

// Version is the release of the autotrader binaries. It is set at build time:
// -ldflags "-X github.com/rxtech-lab/argo-autotrader/internal/version.Version=1.2.3"
var Version = "dev"

// GetVersion returns the current version of the binaries.
func GetVersion() string {
	return Version
}
