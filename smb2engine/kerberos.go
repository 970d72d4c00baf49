package smb2engine

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
)

// resolveCcachePath expands a Kerberos credential cache location the
// way the system libraries do, honoring KRB5CCNAME and its FILE: and
// DIR: prefixes and falling back to the per-uid default.
func resolveCcachePath(ccachePath string) (string, error) {
	if ccachePath == "" {
		ccachePath = os.Getenv("KRB5CCNAME")
	}

	switch {
	case strings.Contains(ccachePath, ":"):
		parts := strings.SplitN(ccachePath, ":", 2)
		prefix, path := parts[0], parts[1]
		switch prefix {
		case "FILE":
			return path, nil
		case "DIR":
			primary, err := os.ReadFile(filepath.Join(path, "primary"))
			if err != nil {
				return "", err
			}
			return filepath.Join(path, strings.TrimSpace(string(primary))), nil
		default:
			return "", fmt.Errorf("unsupported KRB5CCNAME: %s", ccachePath)
		}
	case ccachePath == "":
		u, err := user.Current()
		if err != nil {
			return "", err
		}
		return "/tmp/krb5cc_" + u.Uid, nil
	default:
		return ccachePath, nil
	}
}

func loadKerberosConfig() (*config.Config, error) {
	cfgPath := os.Getenv("KRB5_CONFIG")
	if cfgPath == "" {
		cfgPath = "/etc/krb5.conf"
	}
	return config.Load(cfgPath)
}

// kerberosIdentity resolves the principal stored in the credential
// cache, giving connections a username when the configuration carries
// none.
func kerberosIdentity(ccachePath string) (username, realm string, err error) {
	path, err := resolveCcachePath(ccachePath)
	if err != nil {
		return "", "", err
	}
	if _, err := loadKerberosConfig(); err != nil {
		return "", "", err
	}
	ccache, err := credentials.LoadCCache(path)
	if err != nil {
		return "", "", err
	}
	principal := ccache.GetClientPrincipalName()
	return principal.PrincipalNameString(), ccache.GetClientRealm(), nil
}
