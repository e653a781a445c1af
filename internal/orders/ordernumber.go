package orders

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const orderNumberSuffixChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewOrderNumber mints a human-readable identifier of the form
// ORD-<base36 unix seconds>-<4 random chars>. Uniqueness is enforced by the
// database index; the random suffix keeps same-second collisions unlikely.
func NewOrderNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().Unix(), 36))

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to
		// the timestamp alone rather than panicking mid-checkout.
		return fmt.Sprintf("ORD-%s-%04d", ts, time.Now().UnixNano()%10000)
	}
	suffix := make([]byte, 4)
	for i, b := range buf {
		suffix[i] = orderNumberSuffixChars[int(b)%len(orderNumberSuffixChars)]
	}
	return fmt.Sprintf("ORD-%s-%s", ts, suffix)
}
