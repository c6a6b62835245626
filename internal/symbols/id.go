package symbols

import (
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// idBytes is the digest prefix length kept in a symbol id.
const idBytes = 16

// ID derives a symbol id from the file, the symbol key ("name", or
// "name@containerId" for members) and the 1-based declaration line.
// The same inputs always give the same id.
func ID(fileID, key string, line int) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(fileID))
	h.Write([]byte{0})
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(line)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:idBytes])
}
