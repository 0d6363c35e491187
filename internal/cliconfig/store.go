// Package cliconfig persists CLI session credentials per server so commands
// like whoami or audit events can reuse a login from an earlier invocation.
package cliconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

var ErrCredentialNotFound = fmt.Errorf("credential not found")

// Credential is one saved session: the token pair minted at login. The access
// token goes stale after its short TTL; the refresh token lets the CLI mint a
// fresh pair without re-entering the password.
type Credential struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type CLIConfig struct {
	Credentials map[string]*Credential `json:"credentials,omitempty"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".vantage", "credentials.json"), nil
}

func Load() (*CLIConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening credentials file '%s': %w", path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var cfg CLIConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding credentials file '%s': %w", path, err)
	}
	return &cfg, nil
}

func Save(cfg *CLIConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory '%s': %w", dir, err)
	}

	// tokens inside, so owner-only
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening credentials file '%s' for writing: %w", path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := json.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding credentials to file '%s': %w", path, err)
	}
	return nil
}

// SetCredential stores cred under the server's host, creating the map on
// first use.
func (c *CLIConfig) SetCredential(server string, cred *Credential) error {
	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	if c.Credentials == nil {
		c.Credentials = make(map[string]*Credential)
	}
	c.Credentials[u.Host] = cred
	return nil
}

// RemoveCredential drops the saved session for the server, if any.
func (c *CLIConfig) RemoveCredential(server string) error {
	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	delete(c.Credentials, u.Host)
	return nil
}

func (c *CLIConfig) GetCredential(server string) (*Credential, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	cred, ok := c.Credentials[u.Host]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}
