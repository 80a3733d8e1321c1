package cascade

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Remover deletes files. It is the only filesystem access of the engine.
type Remover interface {
	Remove(name string) error
}

type osRemover struct{}

func (osRemover) Remove(name string) error {
	return os.Remove(name)
}

// disposeAvatar removes the avatar after the rows are committed. Without an
// avatar directory the engine never touches the filesystem. Failures, including
// a file that is already gone, only produce an avatar warning.
func disposeAvatar(files Remover, dir, avatarPath string, result *Result) {
	if dir == "" || avatarPath == "" {
		return
	}

	name := filepath.Base(avatarPath)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		result.warn("avatar", fmt.Sprintf("ignoring unusable avatar path %q", avatarPath))
		return
	}

	if err := files.Remove(filepath.Join(dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.warn("avatar", fmt.Sprintf("avatar %s already removed", name))
			return
		}
		result.warn("avatar", fmt.Sprintf("could not remove avatar %s: %v", name, err))
		return
	}
	result.AvatarRemoved = true
}
