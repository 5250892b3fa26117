package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/factory"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/redis"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/server"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for airdrop configuration
const (
	EnvAirdropConfigFile      = "AIRDROP_CONFIG"
	EnvAirdropPersistenceType = "AIRDROP_PERSISTENCE_TYPE"
	EnvAirdropBadgerPath      = "AIRDROP_BADGER_PATH"
	EnvAirdropRedisAddress    = "AIRDROP_REDIS_ADDRESS"
	EnvAirdropRedisPassword   = "AIRDROP_REDIS_PASSWORD"
	EnvAirdropRedisDB         = "AIRDROP_REDIS_DB"
	EnvAirdropRedisKeyPrefix  = "AIRDROP_REDIS_KEY_PREFIX"
	EnvAirdropRPCURL          = "AIRDROP_RPC_URL"
	EnvAirdropChainID         = "AIRDROP_CHAIN_ID"
	EnvAirdropPort            = "AIRDROP_PORT"
	EnvAirdropTrustedProxies  = "AIRDROP_TRUSTED_PROXIES"
	EnvAirdropSender          = "AIRDROP_SENDER"
	EnvAirdropVerbose         = "AIRDROP_VERBOSE"
)

const (
	DefaultPort              = 8080
	DefaultRateLimitPerSec   = 20.0
	DefaultRateLimitBurst    = 40
	DefaultClockPollInterval = 12 * time.Second
)

type ChainId uint

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_Gnosis          ChainId = 100
	ChainId_ArbitrumOne     ChainId = 42161
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_Gnosis          ChainName = "gnosis"
	ChainName_ArbitrumOne     ChainName = "arbitrum"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_Gnosis:          ChainName_Gnosis,
	ChainId_ArbitrumOne:     ChainName_ArbitrumOne,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_EthereumMainnet: ChainId_EthereumMainnet,
	ChainName_Gnosis:          ChainId_Gnosis,
	ChainName_ArbitrumOne:     ChainId_ArbitrumOne,
	ChainName_EthereumSepolia: ChainId_EthereumSepolia,
	ChainName_EthereumAnvil:   ChainId_EthereumAnvil,
}

// GetBlockTimeForChain returns the expected block time, used as the default
// RPC clock poll interval.
func GetBlockTimeForChain(chainId ChainId) time.Duration {
	switch chainId {
	case ChainId_Gnosis:
		return 5 * time.Second
	case ChainId_ArbitrumOne:
		return time.Second
	case ChainId_EthereumAnvil:
		return 2 * time.Second
	default:
		return DefaultClockPollInterval
	}
}

// GetSupportedChainIDs returns all supported chain IDs
func GetSupportedChainIDs() []ChainId {
	return []ChainId{
		ChainId_EthereumMainnet,
		ChainId_Gnosis,
		ChainId_ArbitrumOne,
		ChainId_EthereumSepolia,
		ChainId_EthereumAnvil,
	}
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (gnosis), %d (arbitrum), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_Gnosis, ChainId_ArbitrumOne, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}

type PersistenceConfig struct {
	Type       persistence.Type `yaml:"type"`
	BadgerPath string           `yaml:"badgerPath"`
	Redis      RedisConfig      `yaml:"redis"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type ServerConfig struct {
	Port            int      `yaml:"port"`
	ProofsFile      string   `yaml:"proofsFile"`
	RateLimitPerSec float64  `yaml:"rateLimitPerSec"`
	RateLimitBurst  int      `yaml:"rateLimitBurst"`
	// TrustedProxies are IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies  []string `yaml:"trustedProxies"`
}

// AirdropConfig is the process configuration shared by the CLI commands.
type AirdropConfig struct {
	Persistence PersistenceConfig `yaml:"persistence"`
	Server      ServerConfig      `yaml:"server"`

	// Chain configuration; when RpcUrl is set the ledger clock follows the
	// chain head instead of the system clock.
	RpcUrl            string        `yaml:"rpcUrl"`
	ChainID           ChainId       `yaml:"chainId"`
	ChainName         ChainName     `yaml:"-"`
	ClockPollInterval time.Duration `yaml:"clockPollInterval"`

	Debug   bool `yaml:"debug"`
	Verbose bool `yaml:"verbose"`
}

// NewDefaultAirdropConfig returns a config backed by the in-memory store.
func NewDefaultAirdropConfig() *AirdropConfig {
	return &AirdropConfig{
		Persistence: PersistenceConfig{Type: persistence.TypeMemory},
		Server: ServerConfig{
			Port:            DefaultPort,
			RateLimitPerSec: DefaultRateLimitPerSec,
			RateLimitBurst:  DefaultRateLimitBurst,
		},
		ChainID: ChainId_EthereumAnvil,
	}
}

// LoadAirdropConfig reads a YAML file over the defaults.
func LoadAirdropConfig(path string) (*AirdropConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return ParseAirdropConfig(data)
}

func ParseAirdropConfig(data []byte) (*AirdropConfig, error) {
	cfg := NewDefaultAirdropConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}

// Validate validates the configuration and fills in derived fields.
func (c *AirdropConfig) Validate() error {
	var allErrors field.ErrorList

	persistencePath := field.NewPath("persistence")
	switch c.Persistence.Type {
	case persistence.TypeMemory, "":
	case persistence.TypeBadger:
		if c.Persistence.BadgerPath == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("badgerPath"), "badgerPath is required for badger persistence"))
		}
	case persistence.TypeRedis:
		if c.Persistence.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("redis", "address"), "address is required for redis persistence"))
		}
		if c.Persistence.Redis.DB < 0 || c.Persistence.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(persistencePath.Child("redis", "db"), c.Persistence.Redis.DB, "db must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(persistencePath.Child("type"), c.Persistence.Type, typesToStrings(persistence.SupportedTypes())))
	}

	serverPath := field.NewPath("server")
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(serverPath.Child("port"), c.Server.Port, "port must be between 1-65535"))
	}
	if c.Server.RateLimitPerSec <= 0 {
		allErrors = append(allErrors, field.Invalid(serverPath.Child("rateLimitPerSec"), c.Server.RateLimitPerSec, "must be positive"))
	}
	if c.Server.RateLimitBurst < 1 {
		allErrors = append(allErrors, field.Invalid(serverPath.Child("rateLimitBurst"), c.Server.RateLimitBurst, "must be at least 1"))
	}
	if _, err := server.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		allErrors = append(allErrors, field.Invalid(serverPath.Child("trustedProxies"), c.Server.TrustedProxies, err.Error()))
	}

	chainName, exists := ChainIdToName[c.ChainID]
	if !exists {
		allErrors = append(allErrors, field.Invalid(field.NewPath("chainId"), c.ChainID, "supported: "+GetSupportedChainIDsString()))
	}
	if c.ClockPollInterval < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("clockPollInterval"), c.ClockPollInterval.String(), "must not be negative"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}

	c.ChainName = chainName
	if c.ClockPollInterval == 0 {
		c.ClockPollInterval = GetBlockTimeForChain(c.ChainID)
	}
	return nil
}

// StoreConfig converts the persistence section for the store factory.
func (c *AirdropConfig) StoreConfig() *factory.StoreConfig {
	sc := &factory.StoreConfig{
		Type:       c.Persistence.Type,
		BadgerPath: c.Persistence.BadgerPath,
	}
	if c.Persistence.Type == persistence.TypeRedis {
		sc.Redis = &redis.RedisConfig{
			Address:   c.Persistence.Redis.Address,
			Password:  c.Persistence.Redis.Password,
			DB:        c.Persistence.Redis.DB,
			KeyPrefix: c.Persistence.Redis.KeyPrefix,
		}
	}
	return sc
}

func typesToStrings(types []persistence.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// ClaimerParams are the deployment parameters of an immediate claimer.
type ClaimerParams struct {
	Token          string `json:"token" yaml:"token"`
	MerkleRoot     string `json:"merkleRoot" yaml:"merkleRoot"`
	ClaimTimeLimit uint64 `json:"claimTimeLimit" yaml:"claimTimeLimit"`
}

// Validate checks the parameters that can be checked without a clock.
func (p *ClaimerParams) Validate() error {
	var allErrors field.ErrorList
	allErrors = append(allErrors, validateTokenAndRoot(p.Token, p.MerkleRoot)...)
	if p.ClaimTimeLimit == 0 {
		allErrors = append(allErrors, field.Required(field.NewPath("claimTimeLimit"), "claimTimeLimit is required"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// VestedClaimerParams are the deployment parameters of a vested claimer.
type VestedClaimerParams struct {
	Token            string `json:"token" yaml:"token"`
	MerkleRoot       string `json:"merkleRoot" yaml:"merkleRoot"`
	ReleaseTimeLimit uint64 `json:"releaseTimeLimit" yaml:"releaseTimeLimit"`
	Start            uint64 `json:"start" yaml:"start"`
	Duration         uint64 `json:"duration" yaml:"duration"`
	Cliff            uint64 `json:"cliff" yaml:"cliff"`
}

func (p *VestedClaimerParams) Validate() error {
	var allErrors field.ErrorList
	allErrors = append(allErrors, validateTokenAndRoot(p.Token, p.MerkleRoot)...)
	if p.Duration == 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("duration"), p.Duration, "duration must be positive"))
	}
	end := p.Start + p.Duration
	if end < p.Start {
		allErrors = append(allErrors, field.Invalid(field.NewPath("duration"), p.Duration, "start + duration overflows"))
	} else {
		if p.Cliff < p.Start || p.Cliff > end {
			allErrors = append(allErrors, field.Invalid(field.NewPath("cliff"), p.Cliff, "cliff must be within [start, start + duration]"))
		}
		if p.ReleaseTimeLimit < end {
			allErrors = append(allErrors, field.Invalid(field.NewPath("releaseTimeLimit"), p.ReleaseTimeLimit, "releaseTimeLimit must not be before the vesting end"))
		}
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func validateTokenAndRoot(token, root string) field.ErrorList {
	var allErrors field.ErrorList
	if token == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("token"), "token is required"))
	} else if !common.IsHexAddress(token) || common.HexToAddress(token) == (common.Address{}) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("token"), token, "invalid token address"))
	}
	if root == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("merkleRoot"), "merkleRoot is required"))
	} else if h := common.FromHex(root); len(h) != 32 || common.BytesToHash(h) == (common.Hash{}) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("merkleRoot"), root, "merkleRoot must be a non-zero 32-byte hex value"))
	}
	return allErrors
}
