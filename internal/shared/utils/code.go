package utils

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"time"
)

// codeEncoding drops padding so codes stay short and opaque.
var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateReservationCode builds a collision-resistant opaque code from the
// current millisecond timestamp plus 6 bytes of CSPRNG output. Collisions are
// astronomically unlikely but the caller still retries on a unique-key hit.
func GenerateReservationCode() (string, error) {
	buf := make([]byte, 14)
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().UnixMilli()))

	if _, err := rand.Read(buf[8:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	// Skip the leading zero bytes of the timestamp; they encode as a constant
	// prefix and add nothing.
	return codeEncoding.EncodeToString(buf[2:]), nil
}
