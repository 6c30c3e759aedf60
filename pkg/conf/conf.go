package conf

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
)

// Version is overridden at build time with -ldflags "-X sshclient/pkg/conf.Version=..."
var Version = "development"

// DefaultIdentity returns ~/.ssh/id_rsa, or an empty string when the home
// directory cannot be resolved.
func DefaultIdentity() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_rsa")
}

// CurrentUser returns the invoking account name.
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		name := u.Username
		// Windows reports DOMAIN\user
		if i := strings.LastIndex(name, `\`); i >= 0 && runtime.GOOS == "windows" {
			name = name[i+1:]
		}
		return name
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return os.Getenv("USERNAME")
}

func PrintVersion() {
	fmt.Printf("sshclient %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
}
