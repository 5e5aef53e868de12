package data

// AppConfig holds the application configuration read from config.json (or config.toml)
type AppConfig struct {
	Network struct {
		Name     string `json:"name" toml:"name"`
		Proxy    string `json:"proxy" toml:"proxy"`
		ChainID  uint64 `json:"chainId" toml:"chainId"`
		Explorer string `json:"explorer" toml:"explorer"`
	} `json:"network" toml:"network"`
	DeploymentsDir string `json:"deploymentsDir" toml:"deploymentsDir"`
	Poller         struct {
		IntervalSeconds   int    `json:"intervalSeconds" toml:"intervalSeconds"`
		MaxRetries        uint64 `json:"maxRetries" toml:"maxRetries"`
		InitialBackoffMs  int    `json:"initialBackoffMs" toml:"initialBackoffMs"`
		MaxBackoffMs      int    `json:"maxBackoffMs" toml:"maxBackoffMs"`
		EventsPollSeconds int    `json:"eventsPollSeconds" toml:"eventsPollSeconds"`
		TimeoutSeconds    int    `json:"timeoutSeconds" toml:"timeoutSeconds"`
	} `json:"poller" toml:"poller"`
	History struct {
		Limit     int    `json:"limit" toml:"limit"`
		CacheSize int    `json:"cacheSize" toml:"cacheSize"`
		ChunkSize uint64 `json:"chunkSize" toml:"chunkSize"`
		MaxBlocks uint64 `json:"maxBlocks" toml:"maxBlocks"`
	} `json:"history" toml:"history"`
	Wallet struct {
		PrivateKey string `json:"privateKey" toml:"privateKey"`
		Seedphrase string `json:"seed" toml:"seed"`
		Index      uint32 `json:"index" toml:"index"`
	} `json:"wallet" toml:"wallet"`
	Bot struct {
		Token   string `json:"token" toml:"token"`
		Owner   int64  `json:"owner" toml:"owner"`
		Group   string `json:"group" toml:"group"`
		GroupID int64  `json:"groupID" toml:"groupID"`
	} `json:"bot" toml:"bot"`
	Display  Display `json:"display" toml:"display"`
	LogLevel string  `json:"logLevel" toml:"logLevel"`
}

// Display holds the presentation settings shared by every renderer
type Display struct {
	Currency string `json:"currency" toml:"currency"`
	Explorer string `json:"explorer" toml:"explorer"`
}
