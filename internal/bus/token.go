package bus

import (
	"strconv"
	"sync/atomic"
)

// Token identifies one subscription. Tokens are opaque and never reused.
type Token string

// lastToken is shared by every Bus in the process. It is initialised once,
// only ever incremented, and never reset (Bus.Reset leaves it alone).
var lastToken atomic.Uint64

// nextToken returns the next token: "0", "1", "2", ...
func nextToken() Token {
	return Token(strconv.FormatUint(lastToken.Add(1)-1, 10))
}
