package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "10MB"
	defaultBucketURL          = "file:///var/lib/familydir/images?create_dir=true"
	defaultAdapterTimeout     = 10 * time.Second
	defaultDistanceCacheSize  = 4096
	defaultDistanceCacheTTL   = 24 * time.Hour
	defaultNearbyWorkers      = 8
	defaultBirthdayTimezone   = "Asia/Kolkata"
	defaultTokenTTL           = 12 * time.Hour
	defaultQRCodeSize         = 256
	defaultMetricsPath        = "/metrics"
)

// Storage drivers understood by the persistence wiring.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		// AllowOrigins lists the browser origins allowed by CORS; empty allows any origin
		AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Storage StorageConfig `json:"storage" yaml:"storage"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// Images configures the blob bucket holding member photos
	Images *ImagesConfig `json:"images" yaml:"images"`

	// Maps configures map-link geocoding and road distance lookups
	Maps *MapsConfig `json:"maps" yaml:"maps"`

	// Profile holds display policies applied by the relationship maintainer
	Profile *ProfileConfig `json:"profile" yaml:"profile"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// QRCode configuration for profile share codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`

	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// StorageConfig selects the member store backend
type StorageConfig struct {
	// Driver is "postgres" or "memory"
	Driver      string `json:"driver" yaml:"driver"`
	AutoMigrate bool   `json:"autoMigrate" yaml:"autoMigrate"`
}

// ImagesConfig defines where uploaded member photos are kept
type ImagesConfig struct {
	// BucketURL is a gocloud.dev blob URL: file:///path, s3://bucket?region=..., gs://bucket, mem://
	BucketURL string `json:"bucketUrl" yaml:"bucketUrl"`

	// PublicBaseURL is prefixed to image refs when rendering them to clients
	PublicBaseURL string `json:"publicBaseUrl" yaml:"publicBaseUrl"`

	// KeyPrefix is prepended to every object key written to the bucket
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// MapsConfig defines the Google Maps backed adapters
type MapsConfig struct {
	// APIKey enables Directions, Geocoding and Places lookups; without it distances fall back to haversine
	APIKey string `json:"apiKey" yaml:"apiKey"`

	// BaseURL overrides https://maps.googleapis.com (tests, proxies)
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	CacheSize int           `json:"cacheSize" yaml:"cacheSize"`
	CacheTTL  time.Duration `json:"cacheTtl" yaml:"cacheTtl"`

	// Number of concurrent distance lookups for a nearby query
	NearbyWorkers int `json:"nearbyWorkers" yaml:"nearbyWorkers"`
}

// HasAPIKey reports whether Google Maps web services can be called
func (m *MapsConfig) HasAPIKey() bool {
	return m != nil && m.APIKey != ""
}

// ProfileConfig defines how profile display fields propagate between spouses
type ProfileConfig struct {
	// MirrorSpouseDisplay copies image and about onto the spouse when a couple is linked
	MirrorSpouseDisplay bool `json:"mirrorSpouseDisplay" yaml:"mirrorSpouseDisplay"`

	// BirthdayTimezone is the IANA zone used to decide "today"
	BirthdayTimezone string `json:"birthdayTimezone" yaml:"birthdayTimezone"`
}

// AuthConfig defines the optional admin login guarding mutating routes
type AuthConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled"`
	AdminUsername     string        `json:"adminUsername" yaml:"adminUsername"`
	AdminPasswordHash string        `json:"adminPasswordHash" yaml:"adminPasswordHash"`
	SecretKey         string        `json:"secretKey" yaml:"secretKey"`
	TokenTTL          time.Duration `json:"tokenTtl" yaml:"tokenTtl"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
	BaseURL              string `json:"baseUrl" yaml:"baseUrl"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Postgres != nil {
		// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// applyDefaults fills optional sections so adapters never see nil configuration.
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.HTTP.MaxRequestBodySize) == "" {
		c.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}

	if c.Images == nil {
		c.Images = &ImagesConfig{}
	}
	if c.Images.BucketURL == "" {
		c.Images.BucketURL = defaultBucketURL
	}
	if c.Images.Timeout <= 0 {
		c.Images.Timeout = defaultAdapterTimeout
	}

	if c.Maps == nil {
		c.Maps = &MapsConfig{}
	}
	if c.Maps.Timeout <= 0 {
		c.Maps.Timeout = defaultAdapterTimeout
	}
	if c.Maps.CacheSize <= 0 {
		c.Maps.CacheSize = defaultDistanceCacheSize
	}
	if c.Maps.CacheTTL <= 0 {
		c.Maps.CacheTTL = defaultDistanceCacheTTL
	}
	if c.Maps.NearbyWorkers <= 0 {
		c.Maps.NearbyWorkers = defaultNearbyWorkers
	}

	if c.Profile == nil {
		c.Profile = &ProfileConfig{MirrorSpouseDisplay: true}
	}
	if c.Profile.BirthdayTimezone == "" {
		c.Profile.BirthdayTimezone = defaultBirthdayTimezone
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = defaultTokenTTL
	}

	if c.QRCode == nil {
		c.QRCode = &QRCodeConfig{Size: defaultQRCodeSize, ErrorCorrectionLevel: "M"}
	}

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
