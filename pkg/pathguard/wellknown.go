package pathguard

import (
	"os"

	"github.com/adrg/xdg"
)

// WellKnownDirs returns the host's download, documents and desktop
// directories. Directories the platform does not define, or that do not
// exist, are silently omitted; the result may be empty.
func WellKnownDirs() []string {
	candidates := []string{
		xdg.UserDirs.Download,
		xdg.UserDirs.Documents,
		xdg.UserDirs.Desktop,
	}

	dirs := make([]string, 0, len(candidates))
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs
}
