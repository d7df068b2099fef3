package plan

import "errors"

// Sentinel errors for planning, editing and snapshot handling.
// Use errors.Is to check: errors.Is(err, plan.ErrInvalidQuota)
var (
	ErrInvalidQuota    = errors.New("plan: invalid weekly quota")
	ErrInvalidDate     = errors.New("plan: invalid date")
	ErrEmptyTrack      = errors.New("plan: track has no daily plans")
	ErrInvalidTrack    = errors.New("plan: invalid track")
	ErrInvalidSession  = errors.New("plan: invalid session")
	ErrDuplicateTrack  = errors.New("plan: duplicate track id")
	ErrInvalidEdit     = errors.New("plan: invalid edit")
	ErrCorruptSnapshot = errors.New("plan: corrupt snapshot")
)
