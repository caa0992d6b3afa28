package tcp

import "github.com/arrowhead-io/aio/internal/addr"

// Addr is the tcp package's address alias, re-exporting the shared
// address union so callers of this package don't need a second import.
type Addr = addr.Addr
