package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// Settings holds all configuration for the provenance client
type Settings struct {
	// Ledger RPC Configuration
	RPCURL          string // JSON-RPC endpoint for the target chain
	ChainID         uint64 // Single supported target network
	ContractAddress string // PredictionRegistry contract address
	Contract        common.Address

	// Signer Configuration
	PrivateKey string // Hex-encoded reporter private key (optional for read-only use)

	// Event Retrieval
	EventStartBlock     uint64 // First block to scan for PredictionRecorded events
	EventBlockBatchSize uint64 // Max block span per queryLogs window
	QueryTimeout        time.Duration

	// Submission
	ConfirmationTimeout time.Duration // Upper bound on receipt waiting

	// IPFS Configuration (optional payload storage)
	IPFSEnabled bool
	IPFSAPIURL  string

	// Redis Configuration (optional event publishing)
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string
	EventChannel  string

	// Monitoring & Debugging
	MetricsEnabled bool
	MetricsPort    int
	LogLevel       string
}

var (
	// SettingsObj is the global settings instance
	SettingsObj *Settings
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	SettingsObj = &Settings{
		// Ledger RPC Configuration
		RPCURL:          getEnv("RPC_URL", "https://rpc.sepolia.org"),
		ChainID:         uint64(getEnvAsInt("CHAIN_ID", 11155111)),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),

		// Signer Configuration
		PrivateKey: getEnv("PRIVATE_KEY", ""),

		// Event Retrieval
		EventStartBlock:     uint64(getEnvAsInt("EVENT_START_BLOCK", 0)),
		EventBlockBatchSize: uint64(getEnvAsInt("EVENT_BLOCK_BATCH_SIZE", 10000)),
		QueryTimeout:        time.Duration(getEnvAsInt("QUERY_TIMEOUT", 30)) * time.Second,

		// Submission
		ConfirmationTimeout: time.Duration(getEnvAsInt("CONFIRMATION_TIMEOUT", 120)) * time.Second,

		// IPFS Configuration
		IPFSEnabled: getBoolEnv("IPFS_ENABLED", false),
		IPFSAPIURL:  getEnv("IPFS_API_URL", "127.0.0.1:5001"),

		// Redis Configuration
		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		EventChannel:  getEnv("EVENT_CHANNEL", "provenance:records"),

		// Monitoring & Debugging
		MetricsEnabled: getBoolEnv("METRICS_ENABLED", false),
		MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	// Configure logging
	configureLogging()

	// Validate configuration
	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	SettingsObj.Contract = common.HexToAddress(SettingsObj.ContractAddress)

	// Log configuration summary
	logConfigSummary()

	return nil
}

// configureLogging sets up the logger based on configuration
func configureLogging() {
	switch strings.ToLower(SettingsObj.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

// validateConfig validates the loaded configuration
func validateConfig() error {
	if SettingsObj.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}

	if SettingsObj.ContractAddress == "" {
		return fmt.Errorf("CONTRACT_ADDRESS is required")
	}
	if !common.IsHexAddress(SettingsObj.ContractAddress) {
		return fmt.Errorf("invalid CONTRACT_ADDRESS: %s", SettingsObj.ContractAddress)
	}

	if SettingsObj.EventBlockBatchSize == 0 {
		return fmt.Errorf("EVENT_BLOCK_BATCH_SIZE must be greater than zero")
	}

	if SettingsObj.RedisEnabled && SettingsObj.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST required when Redis publishing is enabled")
	}

	return nil
}

// logConfigSummary logs a summary of the configuration
func logConfigSummary() {
	log.Info("=== Configuration Loaded ===")
	log.Infof("Chain ID: %d", SettingsObj.ChainID)
	log.Infof("RPC URL: %s", SettingsObj.RPCURL)
	log.Infof("Registry Contract: %s", SettingsObj.ContractAddress)
	log.Infof("Event scan: start block %d, batch size %d",
		SettingsObj.EventStartBlock, SettingsObj.EventBlockBatchSize)
	log.Infof("Confirmation timeout: %v", SettingsObj.ConfirmationTimeout)

	if SettingsObj.PrivateKey != "" {
		log.Info("Signer: configured")
	} else {
		log.Info("Signer: not configured (read-only)")
	}

	if SettingsObj.IPFSEnabled {
		log.Infof("IPFS: %s", SettingsObj.IPFSAPIURL)
	}

	if SettingsObj.RedisEnabled {
		log.Infof("Redis: %s:%s (DB %d), channel %s",
			SettingsObj.RedisHost, SettingsObj.RedisPort, SettingsObj.RedisDB, SettingsObj.EventChannel)
	}

	if SettingsObj.MetricsEnabled {
		log.Infof("Metrics: enabled on port %d", SettingsObj.MetricsPort)
	}

	log.Info("============================")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		value = strings.ToLower(value)
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
