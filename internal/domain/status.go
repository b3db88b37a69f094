package domain

import "time"

// LocalStatus describes the working tree of one repository.
// Branch is empty when HEAD is detached. The file slices preserve the
// order in which git reported the paths.
type LocalStatus struct {
	Branch    string
	Staged    []string
	Unstaged  []string
	Untracked []string
}

// HasUncommittedChanges reports whether any of the file buckets is non-empty.
func (s LocalStatus) HasUncommittedChanges() bool {
	return len(s.Staged) > 0 || len(s.Unstaged) > 0 || len(s.Untracked) > 0
}

// Detached reports whether HEAD points at a commit rather than a branch.
func (s LocalStatus) Detached() bool {
	return s.Branch == ""
}

// RemoteTrackingStatus describes how one branch relates to its upstream.
// TrackingBranch is empty when the branch has no upstream or HEAD is
// detached; in that case Ahead, Behind and HasChanges are all zero values.
//
// HasChanges is strictly Behind > 0. Ahead-only does not count as remote
// changes: local-only commits are reported but do not raise the flag.
type RemoteTrackingStatus struct {
	Branch         string
	TrackingBranch string
	Ahead          int
	Behind         int
	HasChanges     bool
}

// NewRemoteTrackingStatus builds a status that honors the tracking
// invariants: no upstream means zero counts and no changes.
func NewRemoteTrackingStatus(branch, upstream string, ahead, behind int) RemoteTrackingStatus {
	if upstream == "" {
		return RemoteTrackingStatus{Branch: branch}
	}
	return RemoteTrackingStatus{
		Branch:         branch,
		TrackingBranch: upstream,
		Ahead:          ahead,
		Behind:         behind,
		HasChanges:     behind > 0,
	}
}

// ExtendedStatus is the immutable merge of local status, remote tracking
// counts and fetch metadata. Cache entries are replaced by a fresh value,
// never mutated in place.
type ExtendedStatus struct {
	RepositoryID   string
	Local          LocalStatus
	TrackingBranch string
	Ahead          int
	Behind         int
	HasChanges     bool
	Fetch          FetchMetadata
	ComputedAt     time.Time
}

// BranchSyncInfo summarizes one branch's relation to its remote counterpart
// inside a FetchResult.
type BranchSyncInfo struct {
	Branch       string
	RemoteBranch string
	Ahead        int
	Behind       int
}

// FetchResult is produced exactly once per fetch attempt. Err is nil on
// success and a classified *GitError on failure.
type FetchResult struct {
	RepositoryID  string
	Success       bool
	Err           *GitError
	RemoteChanges bool
	CommitsBehind int
	Branches      []BranchSyncInfo
	FetchedAt     time.Time
}
