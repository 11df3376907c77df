package config

import "github.com/zalando/go-keyring"

const keyringService = "cleanlens"

// LoadAPIKey 从系统钥匙串读取 provider 的 API Key
func LoadAPIKey(provider string) (string, error) {
	if provider == "" {
		return "", keyring.ErrNotFound
	}
	return keyring.Get(keyringService, provider)
}

// StoreAPIKey 把 API Key 保存到系统钥匙串
func StoreAPIKey(provider, key string) error {
	if provider == "" || key == "" {
		return keyring.ErrNotFound
	}
	return keyring.Set(keyringService, provider, key)
}

// DeleteAPIKey 从系统钥匙串删除 API Key
func DeleteAPIKey(provider string) error {
	if provider == "" {
		return keyring.ErrNotFound
	}
	return keyring.Delete(keyringService, provider)
}
