package launch

import (
	"os"
	"path/filepath"

	"ybctl/model"
)

// ResolveBinary returns the first dirs/name that is a regular executable file.
func ResolveBinary(name string, dirs []string) (string, error) {
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Mode().Perm()&0111 != 0 {
			return p, nil
		}
	}
	return "", &model.BinaryNotFoundError{Binary: name, Dirs: dirs}
}
