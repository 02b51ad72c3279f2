package app

type AppConfig struct {
	Logger  LoggerConfig  `yaml:"logger" json:"logger"`
	Solana  SolanaConfig  `yaml:"solana" json:"solana"`
	Drop    DropConfig    `yaml:"drop" json:"drop"`
	Wallet  WalletConfig  `yaml:"wallet" json:"wallet"`
	Access  AccessConfig  `yaml:"access" json:"access"`
	History HistoryConfig `yaml:"history" json:"history"`
	HTTP    HTTPConfig    `yaml:"http" json:"http"`
}

type LoggerConfig struct {
	Level string `yaml:"level" json:"level"`
}

type SolanaConfig struct {
	RPCURL             string `yaml:"rpc_url" json:"rpc_url"`
	WSURL              string `yaml:"ws_url" json:"ws_url"`
	Network            string `yaml:"network" json:"network"`
	RPCTimeoutMillis   int64  `yaml:"rpc_timeout_ms" json:"rpc_timeout_ms"`
	PollIntervalMillis int64  `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	SkipPreflight      bool   `yaml:"skip_preflight" json:"skip_preflight"`
}

type DropConfig struct {
	CandyMachineID        string `yaml:"candy_machine_id" json:"candy_machine_id"`
	TxTimeoutMillis       int64  `yaml:"tx_timeout_ms" json:"tx_timeout_ms"`
	RefreshIntervalMillis int64  `yaml:"refresh_interval_ms" json:"refresh_interval_ms"`
}

type WalletConfig struct {
	KeypairPath string `yaml:"keypair_path" json:"keypair_path"`
}

type AccessConfig struct {
	Enabled       bool     `yaml:"enabled" json:"enabled"`
	AllowList     []string `yaml:"allow_list" json:"allow_list"`
	AllowListFile string   `yaml:"allow_list_file" json:"allow_list_file"`
}

type HistoryConfig struct {
	DSN string `yaml:"dsn" json:"-"`
}

type HTTPConfig struct {
	Host           string   `yaml:"host" json:"host"`
	Port           string   `yaml:"port" json:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token" json:"-"`
}
