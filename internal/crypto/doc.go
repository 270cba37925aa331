// Package crypto holds the primitives the transfer protocol is built from.
//
//   - RSA-2048 keypairs, one per identity
//   - RSA-OAEP with SHA-256 for wrapping nonces and session keys
//   - RSASSA-PKCS1-v1_5 over SHA-256 for signatures
//   - AES-256-CTR for the file body
//   - SHA-256 for the integrity digest
//
// Every function is stateless; entropy comes from crypto/rand only.
package crypto
