package types

// Version is the canonical project version.
// The CLI and the manifest schema docs reference this constant.
const Version = "0.4.0"
