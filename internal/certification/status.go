package certification

import (
	"fmt"
	"time"

	"railledger/pkg/domain"
)

// DeriveStatus computes the canonical status from stored facts and an
// evaluation instant. Deterministic and total: every certification maps to
// exactly one status for a given asOf.
//
//	revoked                         -> FAIL
//	proof absent                    -> INCOMPLETE
//	non-expiring                    -> PASS
//	expiration date absent          -> INCOMPLETE
//	asOf <= expiration date         -> PASS (boundary instant is still valid)
//	asOf >  expiration date         -> FAIL
func DeriveStatus(c *Certification, asOf time.Time) domain.CertStatus {
	switch {
	case c.Revoked:
		return domain.StatusFail
	case !c.HasProof():
		return domain.StatusIncomplete
	case c.NonExpiring:
		return domain.StatusPass
	case c.ExpirationDate == nil:
		return domain.StatusIncomplete
	case !asOf.After(*c.ExpirationDate):
		return domain.StatusPass
	default:
		return domain.StatusFail
	}
}

// FailureReason explains a FAIL or INCOMPLETE status for display and for
// enforcement records. It derives from the same rules as DeriveStatus, so the
// two can never disagree. Returns "" for PASS.
func FailureReason(c *Certification, asOf time.Time) string {
	switch DeriveStatus(c, asOf) {
	case domain.StatusPass:
		return ""
	case domain.StatusIncomplete:
		if !c.HasProof() {
			return "missing required proof of certification"
		}
		return "missing expiration date"
	default:
		if c.Revoked {
			reason := "certification revoked"
			if c.RevokedReason != "" {
				reason += ": " + c.RevokedReason
			}
			return reason
		}
		return fmt.Sprintf("certification expired on %s", c.ExpirationDate.UTC().Format("2006-01-02"))
	}
}
