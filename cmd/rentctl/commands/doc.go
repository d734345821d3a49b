// Package commands implements the rentctl command tree: key management,
// signing and submission of every rental transaction, and read queries
// against a rentchaind JSON-RPC endpoint.
package commands
