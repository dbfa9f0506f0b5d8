// Package kernalinit exposes build metadata shared by the CLI.
package kernalinit

// Version is the semantic version of the kernalinit tool.
const Version = "0.3.0"
