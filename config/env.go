package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvPrivateKey       = "PRIVATE_KEY"
	EnvWalletAddress    = "WALLET_ADDRESS"
	EnvTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID   = "TELEGRAM_CHAT_ID"
)

// LoadEnv loads environment variables from a .env file when present.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}

// LoadSecureConfig pulls all secrets from the environment. The process
// must not start if any of them is missing.
func LoadSecureConfig() (*SecureConfig, error) {
	privateKey, err := GetRequiredEnv(EnvPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key not found: %w", err)
	}

	wallet, err := GetRequiredEnv(EnvWalletAddress)
	if err != nil {
		return nil, fmt.Errorf("wallet address not found: %w", err)
	}

	botToken, err := GetRequiredEnv(EnvTelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot token not found: %w", err)
	}

	chatID, err := GetRequiredEnv(EnvTelegramChatID)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id not found: %w", err)
	}

	return &SecureConfig{
		PrivateKey:       privateKey,
		WalletAddress:    wallet,
		TelegramBotToken: botToken,
		TelegramChatID:   chatID,
	}, nil
}
