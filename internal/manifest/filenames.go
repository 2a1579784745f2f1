package manifest

import (
	"fmt"
	"path"

	"github.com/google/uuid"
)

// Filenames follow spec.md §6's on-disk layout exactly. UUID generation is
// grounded on AndrewTheMaster-FundamentalsOfDesigningHighLoadApplications's
// go.mod, which pulls in google/uuid for the same role: generating
// collision-free object identifiers for files written once and never
// renamed again.

func SnapshotPath(root string, id int64) string {
	return path.Join(root, "snapshot", fmt.Sprintf("snapshot-%d", id))
}

func LatestPointerPath(root string) string {
	return path.Join(root, "snapshot", "LATEST")
}

func EarliestPointerPath(root string) string {
	return path.Join(root, "snapshot", "EARLIEST")
}

func NewManifestFileName() string {
	return "manifest-" + uuid.New().String()
}

func NewManifestListFileName() string {
	return "manifest-list-" + uuid.New().String()
}

func ManifestPath(root, name string) string {
	return path.Join(root, "manifest", name)
}

func NewDataFileName(ext string) string {
	return "data-" + uuid.New().String() + "." + ext
}

// BucketPartitionDir returns the directory a data file for (bucket,
// partitionPath) lives in, per spec.md §6:
// "bucket-<b>/<partition-path>/ # partition dirs nested per partition column".
func BucketPartitionDir(root string, bucket int32, partitionPath string) string {
	dir := path.Join(root, fmt.Sprintf("bucket-%d", bucket))
	if partitionPath != "" {
		dir = path.Join(dir, partitionPath)
	}
	return dir
}

func SchemaPath(root string, schemaID int64) string {
	return path.Join(root, "schema", fmt.Sprintf("schema-%d", schemaID))
}
