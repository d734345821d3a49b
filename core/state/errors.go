package state

import "errors"

// ErrNonceMismatch is returned when a signed request carries a nonce other than
// the signer's next expected value.
var ErrNonceMismatch = errors.New("state: nonce mismatch")
