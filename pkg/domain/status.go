package domain

import dErrors "railledger/pkg/domain-errors"

// CertStatus is the canonical certification status vocabulary. The legacy
// valid/expired/revoked vocabulary still appears in imported data and older
// API clients; it is mapped here, at the boundary, and nowhere else.
type CertStatus string

const (
	// StatusPass means the certification satisfies its preset as of the
	// evaluation instant.
	StatusPass CertStatus = "PASS"
	// StatusFail means the certification has expired or been revoked.
	StatusFail CertStatus = "FAIL"
	// StatusIncomplete means required proof or dates are missing.
	StatusIncomplete CertStatus = "INCOMPLETE"
)

func (s CertStatus) IsValid() bool {
	return s == StatusPass || s == StatusFail || s == StatusIncomplete
}

func (s CertStatus) String() string { return string(s) }

// ParseLegacyStatus maps the legacy vocabulary onto the canonical one:
// valid -> PASS, expired -> FAIL, revoked -> FAIL. Canonical values pass
// through unchanged so callers can accept either form at the boundary.
// The revoked/expired distinction survives in the enforcement reason, not
// in the status itself.
func ParseLegacyStatus(s string) (CertStatus, error) {
	switch s {
	case "valid":
		return StatusPass, nil
	case "expired", "revoked":
		return StatusFail, nil
	case string(StatusPass), string(StatusFail), string(StatusIncomplete):
		return CertStatus(s), nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown certification status: "+s)
	}
}
