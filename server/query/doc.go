// Package query answers status queries of the world server over UDP.
//
// Queries follow the GameSpy 4 query protocol used by Minecraft servers, so
// that existing query tools can read the state of the server. The package
// handles the token handshake and encoding, and asks a ProviderFunc for the
// data to answer with.
package query
