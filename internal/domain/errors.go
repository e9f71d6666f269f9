package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyNetwork    = errors.New("network has no edges")
	ErrCycleDetected   = errors.New("cycle detected")
	ErrMultipleRoots   = errors.New("multiple roots")
	ErrDanglingEdge    = errors.New("dangling edge")
	ErrDuplicateMember = errors.New("duplicate member")
	ErrInvalidTier     = errors.New("invalid package tier")
	ErrInvalidVolume   = errors.New("invalid volume")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPolicy   = errors.New("invalid policy")
)

// CycleDetectedError reports a member that cannot be reached from the root without looping.
type CycleDetectedError struct {
	MemberID string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected at member %q", e.MemberID)
}

func (e *CycleDetectedError) Is(target error) bool { return target == ErrCycleDetected }

// MultipleRootsError lists every member declared without a sponsor.
type MultipleRootsError struct {
	RootIDs []string
}

func (e *MultipleRootsError) Error() string {
	return fmt.Sprintf("multiple roots: %s", strings.Join(e.RootIDs, ", "))
}

func (e *MultipleRootsError) Is(target error) bool { return target == ErrMultipleRoots }

// DanglingEdgeError reports an edge that references a member without attributes.
type DanglingEdgeError struct {
	MemberID  string
	SponsorID string
	Missing   string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("edge %q -> %q references unknown member %q", e.MemberID, e.SponsorID, e.Missing)
}

func (e *DanglingEdgeError) Is(target error) bool { return target == ErrDanglingEdge }

// DuplicateMemberError reports a member declared by more than one edge.
type DuplicateMemberError struct {
	MemberID string
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("member %q declared more than once", e.MemberID)
}

func (e *DuplicateMemberError) Is(target error) bool { return target == ErrDuplicateMember }

// InvalidTierError reports a member whose package tier is not in the tier table.
type InvalidTierError struct {
	MemberID string
	Tier     string
}

func (e *InvalidTierError) Error() string {
	return fmt.Sprintf("member %q references unknown package tier %q", e.MemberID, e.Tier)
}

func (e *InvalidTierError) Is(target error) bool { return target == ErrInvalidTier }

// InvalidVolumeError reports a negative or non-finite volume.
type InvalidVolumeError struct {
	MemberID string
	Volume   float64
}

func (e *InvalidVolumeError) Error() string {
	return fmt.Sprintf("member %q has invalid volume %v", e.MemberID, e.Volume)
}

func (e *InvalidVolumeError) Is(target error) bool { return target == ErrInvalidVolume }

// InvalidAmountError reports a withdrawal amount that is not strictly positive.
type InvalidAmountError struct {
	Amount float64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("withdrawal amount must be positive, got %v", e.Amount)
}

func (e *InvalidAmountError) Is(target error) bool { return target == ErrInvalidAmount }
