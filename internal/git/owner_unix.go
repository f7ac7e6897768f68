//go:build unix

package git

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

// ErrNotOwner is returned by Open for a directory owned by someone else
var ErrNotOwner = errors.New("repository path is not owned by current user")

// checkOwner mirrors git's safe.directory rule: the repository must be
// owned by the effective user
func checkOwner(path string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// left for open to report
			return nil
		}
		return fmt.Errorf("stat repository: %w", err)
	}
	if int(st.Uid) != unix.Geteuid() {
		return fmt.Errorf("%w (owned by uid %d)", ErrNotOwner, st.Uid)
	}
	return nil
}
