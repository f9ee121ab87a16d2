// Package keygen generates SSH key pairs.
//
// Private keys are PEM encoded and public keys use the authorized_keys
// format, so a generated pair can be written to an identity file and a
// node's authorized_keys directly.
package keygen
