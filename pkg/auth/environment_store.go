package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// This is the store non-interactive deployments end up using.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	consumerKey := os.Getenv("CATMIGRATE_CONSUMER_KEY")
	consumerSecret := os.Getenv("CATMIGRATE_CONSUMER_SECRET")
	baseURL := os.Getenv("CATMIGRATE_API_URL")

	if consumerKey == "" || consumerSecret == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables don't carry an account name, so default it
	if name == "" {
		name = "default"
	}

	return &Account{
		Name:           name,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		BaseURL:        baseURL,
		LastModified:   time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	consumerKey := os.Getenv("CATMIGRATE_CONSUMER_KEY")
	consumerSecret := os.Getenv("CATMIGRATE_CONSUMER_SECRET")
	return consumerKey != "" && consumerSecret != ""
}
