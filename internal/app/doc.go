// Package app glues the domains together: it exposes the browser and
// download managers as the control method surface and owns application
// shutdown semantics (last window closed, explicit exit, socket close).
package app
