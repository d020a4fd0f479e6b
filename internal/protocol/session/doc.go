// Package session owns the client<->overlay wire session helpers.
//
// Ownership boundary:
// - client.hello control handshake (JSON line envelope)
// - display.* server->client frame encoding
// - client input frame decoding
// - listener transport security checks
package session
