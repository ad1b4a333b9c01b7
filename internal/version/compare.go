package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSnapshotCompatibility reports whether a state snapshot written with
// snapshotVersion can be loaded by a reader at readerVersion.
//
// Rules:
//   - "main" on either side skips the check
//   - major versions must match
//   - the snapshot minor version must not be newer than the reader's
//   - patch versions are ignored
func CheckSnapshotCompatibility(readerVersion, snapshotVersion string) error {
	readerVersion = strings.TrimPrefix(readerVersion, "v")
	snapshotVersion = strings.TrimPrefix(snapshotVersion, "v")

	if readerVersion == "main" || snapshotVersion == "main" {
		return nil
	}

	reader, err := semver.NewVersion(readerVersion)
	if err != nil {
		return fmt.Errorf("invalid reader version '%s': %w", readerVersion, err)
	}

	snapshot, err := semver.NewVersion(snapshotVersion)
	if err != nil {
		return fmt.Errorf("invalid snapshot version '%s': %w", snapshotVersion, err)
	}

	if reader.Major() != snapshot.Major() {
		return fmt.Errorf("major version mismatch: reader is %d.x.x but snapshot is %d.x.x",
			reader.Major(), snapshot.Major())
	}

	if snapshot.Minor() > reader.Minor() {
		return fmt.Errorf("snapshot %d.%d.x is newer than reader %d.%d.x",
			snapshot.Major(), snapshot.Minor(), reader.Major(), reader.Minor())
	}

	return nil
}
