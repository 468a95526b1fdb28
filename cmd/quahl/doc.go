// Command quahl runs the embeddable web-view application shell: browser
// windows plus the optional TCP control socket a host process drives.
//
// When the socket is enabled the bound address is announced on stdout
// as a single framed line, {"QuahlIPCSocket": "HOST:PORT"}; everything
// else is logged to stderr.
package main
