// Package shrinkbatch holds build metadata for the shrinkbatch command.
package shrinkbatch

// Version is overridden at build time with -ldflags "-X".
var Version = "0.3.0-dev"
