// internal/auth/passcode.go
package auth

import (
	"fmt"
	"time"

	"chat-relay/internal/tenant"
)

// passcodeBase follows the daily prefix: zero-padded day of month + base.
const passcodeBase = "8080"

// MinPasscodeLen is the shortest credential that can possibly match:
// the daily prefix followed by a tenant id.
const MinPasscodeLen = 2 + len(passcodeBase) + tenant.IDLength

// DailyPrefix derives the rotating passcode prefix for the given time.
// A full credential is this prefix immediately followed by the tenant id,
// e.g. day 04 and tenant 1234 yield "0480801234".
func DailyPrefix(t time.Time) string {
	return fmt.Sprintf("%02d%s", t.Day(), passcodeBase)
}
