package app

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	defaultNetwork         = "devnet"
	defaultTxTimeout       = 30000
	defaultRefreshInterval = 20000
	defaultPollInterval    = 2000
	defaultRPCTimeout      = 10000
	defaultHTTPHost        = "127.0.0.1"
	defaultHTTPPort        = "8080"
)

var (
	Config AppConfig
)

func InitConfig(configFile string, envFile string) {
	readConfigFromConfigFile(configFile)
	readConfigFromEnv(envFile)
	setDefaults()
	validateConfig()
}

func readConfigFromConfigFile(configFile string) bool {
	if configFile == "" {
		log.Debug("[CONFIG] No config file provided")
		return false
	}
	yamlFile, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("[CONFIG] Error reading config file %q: %s\n", configFile, err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &Config)
	if err != nil {
		log.Fatalf("[CONFIG] Error unmarshalling config file %q: %s\n", configFile, err.Error())
	}
	log.Debug("[CONFIG] Config loaded from ", configFile)
	return true
}

func readConfigFromEnv(envFile string) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			log.Warn("[CONFIG] Error loading .env file: ", err.Error())
		}
	}
	if Config.Logger.Level == "" {
		Config.Logger.Level = os.Getenv("LOG_LEVEL")
	}
	if Config.Solana.RPCURL == "" {
		Config.Solana.RPCURL = os.Getenv("SOLANA_RPC_URL")
	}
	if Config.Solana.WSURL == "" {
		Config.Solana.WSURL = os.Getenv("SOLANA_WS_URL")
	}
	if Config.Solana.Network == "" {
		Config.Solana.Network = os.Getenv("SOLANA_NETWORK")
	}
	if Config.Drop.CandyMachineID == "" {
		Config.Drop.CandyMachineID = os.Getenv("CANDY_MACHINE_ID")
	}
	if Config.Drop.TxTimeoutMillis == 0 && os.Getenv("TX_TIMEOUT_MS") != "" {
		timeout, err := strconv.ParseInt(os.Getenv("TX_TIMEOUT_MS"), 10, 64)
		if err != nil {
			log.Warn("[CONFIG] Error parsing TX_TIMEOUT_MS: ", err.Error())
		} else {
			Config.Drop.TxTimeoutMillis = timeout
		}
	}
	if Config.Wallet.KeypairPath == "" {
		Config.Wallet.KeypairPath = os.Getenv("WALLET_KEYPAIR")
	}
	if Config.History.DSN == "" {
		Config.History.DSN = os.Getenv("HISTORY_DSN")
	}
	if Config.HTTP.Host == "" {
		Config.HTTP.Host = os.Getenv("HTTP_HOST")
	}
	if Config.HTTP.Port == "" {
		Config.HTTP.Port = os.Getenv("HTTP_PORT")
	}
	if len(Config.HTTP.AllowedOrigins) == 0 && os.Getenv("HTTP_ALLOWED_ORIGINS") != "" {
		for _, origin := range strings.Split(os.Getenv("HTTP_ALLOWED_ORIGINS"), ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				Config.HTTP.AllowedOrigins = append(Config.HTTP.AllowedOrigins, origin)
			}
		}
	}
	if Config.HTTP.AuthToken == "" {
		Config.HTTP.AuthToken = os.Getenv("HTTP_AUTH_TOKEN")
	}
}

func setDefaults() {
	if Config.Solana.Network == "" {
		log.Info("[CONFIG] Setting Solana.Network to ", defaultNetwork)
		Config.Solana.Network = defaultNetwork
	}
	if Config.Solana.RPCTimeoutMillis == 0 {
		Config.Solana.RPCTimeoutMillis = defaultRPCTimeout
	}
	if Config.Solana.PollIntervalMillis == 0 {
		Config.Solana.PollIntervalMillis = defaultPollInterval
	}
	if Config.Drop.TxTimeoutMillis == 0 {
		Config.Drop.TxTimeoutMillis = defaultTxTimeout
	}
	if Config.Drop.RefreshIntervalMillis == 0 {
		Config.Drop.RefreshIntervalMillis = defaultRefreshInterval
	}
	if Config.HTTP.Host == "" {
		Config.HTTP.Host = defaultHTTPHost
	}
	if Config.HTTP.Port == "" {
		Config.HTTP.Port = defaultHTTPPort
	}
}

func validateConfig() {
	if Config.Solana.RPCURL == "" {
		log.Fatal("[CONFIG] Solana.RPCURL is required")
	}
	switch Config.Solana.Network {
	case "devnet", "testnet", "mainnet-beta":
	default:
		log.Fatalf("[CONFIG] Solana.Network %q is not a known cluster", Config.Solana.Network)
	}
	if Config.Drop.CandyMachineID == "" {
		log.Fatal("[CONFIG] Drop.CandyMachineID is required")
	}
	if _, err := solana.PublicKeyFromBase58(Config.Drop.CandyMachineID); err != nil {
		log.Fatal("[CONFIG] Drop.CandyMachineID is not a valid public key: ", err.Error())
	}
	if Config.Drop.TxTimeoutMillis < 0 {
		log.Fatal("[CONFIG] Drop.TxTimeoutMillis must be positive")
	}
	if Config.Wallet.KeypairPath == "" {
		log.Fatal("[CONFIG] Wallet.KeypairPath is required")
	}
	// the mint route spends from the configured keypair
	if !isLoopback(Config.HTTP.Host) && Config.HTTP.AuthToken == "" {
		log.Fatalf("[CONFIG] HTTP.AuthToken is required when listening on %q", Config.HTTP.Host)
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// HTTPAddr - Listen address of the API server
func HTTPAddr() string {
	return net.JoinHostPort(Config.HTTP.Host, Config.HTTP.Port)
}

func CandyMachineID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(Config.Drop.CandyMachineID)
}

func Millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
