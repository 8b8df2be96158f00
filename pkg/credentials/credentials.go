package credentials

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/macchain/backend/pkg/config"
)

// Credentials is the signed-in session stored next to the config
type Credentials struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsAdmin     bool      `json:"is_admin"`
}

// Load reads the credentials file. A missing file is not an error.
func Load() (*Credentials, error) {
	data, err := os.ReadFile(config.GetCredentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Save writes the credentials readable by the owner only
func Save(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(config.GetCredentialsPath(), data, 0600)
}

// Delete removes the credentials file
func Delete() error {
	err := os.Remove(config.GetCredentialsPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsExpired reports whether the access token has expired
func (c *Credentials) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsValid reports whether the credentials can authenticate a request
func (c *Credentials) IsValid() bool {
	return c != nil && c.AccessToken != "" && !c.IsExpired()
}

// ClientID returns this installation's realtime client id, creating and
// persisting it on first use.
func ClientID() (string, error) {
	path := filepath.Join(config.GetConfigDir(), "client-id")
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", err
	}
	return id, nil
}
