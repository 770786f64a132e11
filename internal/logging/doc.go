// Package logging provides a small leveled logger shared by the drive server
// and the maintenance CLI.
//
// Levels are DEBUG, INFO, WARN and ERROR; Fatal always prints and exits.
// The level comes from LOG_LEVEL (or DEBUG=true) on first use and can be
// overridden with SetLevel.
package logging
