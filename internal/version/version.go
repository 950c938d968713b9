package version

// Version is the warden release version, overridable at build time via
// -ldflags "-X github.com/wardenhq/warden/internal/version.Version=...".
var Version = "0.1.0"
