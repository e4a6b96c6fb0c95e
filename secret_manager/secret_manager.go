package secret_manager

import (
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// Secret names are an external contract: they match the environment
// variables the backend and source-control integrations document.
const (
	AnythingLLMAPIKeySecretName = "ANYTHINGLLM_API_KEY"
	GithubTokenSecretName       = "GITHUB_TOKEN"
)

type SecretManager interface {
	GetSecret(secretName string) (string, error)
	SetSecret(secretName string, secret string) error
	DeleteSecret(secretName string) error
	GetType() SecretManagerType
}

type SecretManagerType string

const (
	EnvSecretManagerType     SecretManagerType = "env"
	MockSecretManagerType    SecretManagerType = "mock"
	KeyringSecretManagerType SecretManagerType = "keyring"
)

type EnvSecretManager struct{}

func (e EnvSecretManager) SetSecret(secretName string, secret string) error {
	return fmt.Errorf("cannot set secrets in environment secret manager - secrets must be set as environment variables")
}

func (e EnvSecretManager) GetSecret(secretName string) (string, error) {
	secret := os.Getenv(secretName)
	if secret == "" {
		return "", fmt.Errorf("secret %s not found in environment", secretName)
	}
	return secret, nil
}

func (e EnvSecretManager) DeleteSecret(secretName string) error {
	return fmt.Errorf("cannot delete secrets in environment secret manager - secrets must be managed via environment variables")
}

func (e EnvSecretManager) GetType() SecretManagerType {
	return EnvSecretManagerType
}

type KeyringSecretManager struct{}

const keyringService = "appsmith"

func (k KeyringSecretManager) SetSecret(secretName string, secret string) error {
	err := keyring.Set(keyringService, secretName, secret)
	if err != nil {
		return fmt.Errorf("error setting %s in keyring: %w", secretName, err)
	}
	return nil
}

func (k KeyringSecretManager) GetSecret(secretName string) (string, error) {
	secret, err := keyring.Get(keyringService, secretName)
	if err != nil {
		return "", fmt.Errorf("error retrieving %s from keyring: %w", secretName, err)
	}
	return secret, nil
}

func (k KeyringSecretManager) DeleteSecret(secretName string) error {
	err := keyring.Delete(keyringService, secretName)
	if err != nil {
		return fmt.Errorf("error deleting %s from keyring: %w", secretName, err)
	}
	return nil
}

func (k KeyringSecretManager) GetType() SecretManagerType {
	return KeyringSecretManagerType
}

type MockSecretManager struct {
	secrets map[string]string
}

func (m MockSecretManager) GetSecret(secretName string) (string, error) {
	if m.secrets == nil {
		return "fake secret", nil
	}
	if secret, ok := m.secrets[secretName]; ok {
		return secret, nil
	}
	return "fake secret", nil
}

func (m *MockSecretManager) SetSecret(secretName string, secret string) error {
	if m.secrets == nil {
		m.secrets = make(map[string]string)
	}
	m.secrets[secretName] = secret
	return nil
}

func (m *MockSecretManager) DeleteSecret(secretName string) error {
	if m.secrets != nil {
		delete(m.secrets, secretName)
	}
	return nil
}

func (m MockSecretManager) GetType() SecretManagerType {
	return MockSecretManagerType
}

// FallbackSecretManager checks the environment first and falls back to the
// OS keyring, so CI runs and local interactive runs both work unconfigured.
type FallbackSecretManager struct {
	env     EnvSecretManager
	keyring KeyringSecretManager
}

func (f FallbackSecretManager) GetSecret(secretName string) (string, error) {
	secret, err := f.env.GetSecret(secretName)
	if err == nil {
		return secret, nil
	}
	return f.keyring.GetSecret(secretName)
}

func (f FallbackSecretManager) SetSecret(secretName string, secret string) error {
	return f.keyring.SetSecret(secretName, secret)
}

func (f FallbackSecretManager) DeleteSecret(secretName string) error {
	return f.keyring.DeleteSecret(secretName)
}

func (f FallbackSecretManager) GetType() SecretManagerType {
	return EnvSecretManagerType
}

// GetSecretManager returns a SecretManager instance of the specified type
func GetSecretManager(smType SecretManagerType) SecretManager {
	switch smType {
	case KeyringSecretManagerType:
		return &KeyringSecretManager{}
	case EnvSecretManagerType:
		return &EnvSecretManager{}
	case MockSecretManagerType:
		return &MockSecretManager{}
	default:
		return &FallbackSecretManager{}
	}
}
