// Package jwt issues and verifies RS256 session tokens. Keys are loaded once
// from externally provisioned PEM material; rotation is not handled here.
package jwt
