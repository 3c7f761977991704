package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Pollum-io/sysweb3/lib/types"
)

// Validators hold the list of validation functions for each configuration
// property. Validators must take a key and json string respectively as
// arguments, and must return either an error or nil depending on whether or not
// the given key and value are valid. Validators will only be run if a property
// being set matches the name given in this map.
var Validators = map[string]func(string, string) error{
	"keyring.scryptStrength": validateStrength,
	"keyring.queryTimeout":   validateDuration,
	"log.level":              validateLevel,
	"data.backend":           validateBackend,
	"identity.name":          validateLettersOnly,
}

// Config is an in memory representation of the wallet configuration file
type Config struct {
	Identity IdentityConfig `json:"identity"`
	Keyring  KeyringConfig  `json:"keyring"`
	Networks NetworkConfig  `json:"networks"`
	Log      LogConfig      `json:"log"`
	Data     StoreConfig    `json:"data"`
}

type IdentityConfig struct {
	Name string `json:"name"`
}

func newDefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{}
}

const (
	StrengthStandard = "standard"
	StrengthLight    = "light"
)

// KeyringConfig tunes the keyring manager.
type KeyringConfig struct {
	// QueryTimeout bounds every indexer call, e.g. "15s".
	QueryTimeout string `json:"queryTimeout"`
	// ScryptStrength is "standard" or "light".
	ScryptStrength string `json:"scryptStrength"`
	// LRUSize is the number of cached EVM rpc clients.
	LRUSize int `json:"lruSize"`
}

func newDefaultKeyringConfig() KeyringConfig {
	return KeyringConfig{
		QueryTimeout:   "15s",
		ScryptStrength: StrengthStandard,
		LRUSize:        8,
	}
}

// Timeout parses QueryTimeout, falling back to 15s.
func (k KeyringConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(k.QueryTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// NetworkConfig holds networks appended to the built-in table.
type NetworkConfig struct {
	Custom []types.Network `json:"custom"`
}

func newDefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Custom: []types.Network{},
	}
}

type LogConfig struct {
	Level string `json:"level"`
	// File enables rotating file output when set.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
}

func newDefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		MaxSizeMB:  64,
		MaxBackups: 3,
	}
}

const (
	BackendBadger  = "badger"
	BackendLevelDB = "leveldb"
)

type StoreConfig struct {
	// Path of the store, relative paths are joined to the wallet home.
	Path    string `json:"path"`
	Backend string `json:"backend"`
}

func newDefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Path:    "keyring",
		Backend: BackendBadger,
	}
}

// NewDefaultConfig returns a config object with all the fields filled out to
// their default values
func NewDefaultConfig() *Config {
	return &Config{
		Identity: newDefaultIdentityConfig(),
		Keyring:  newDefaultKeyringConfig(),
		Networks: newDefaultNetworkConfig(),
		Log:      newDefaultLogConfig(),
		Data:     newDefaultStoreConfig(),
	}
}

// WriteFile writes the config to the given filepath.
func (cfg *Config) WriteFile(file string) error {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close() // nolint: errcheck

	configString, err := json.MarshalIndent(*cfg, "", "\t")
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(f, string(configString))
	return err
}

// ReadFile reads a config file from disk.
func ReadFile(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint: errcheck

	cfg := NewDefaultConfig()
	rawConfig, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(rawConfig) == 0 {
		return cfg, nil
	}

	err = json.Unmarshal(rawConfig, &cfg)
	if err != nil {
		return nil, err
	}

	for i, n := range cfg.Networks.Custom {
		if !n.ChainFamily.Valid() || n.ChainID == 0 || n.URL == "" {
			return nil, errors.Errorf("networks.custom[%d]: invalid network %s", i, n)
		}
	}

	return cfg, nil
}

// Set sets the config sub-struct referenced by `key`, e.g. 'keyring.queryTimeout'
// or 'log' to the json key value pair encoded in jsonVal.
func (cfg *Config) Set(dottedKey string, jsonString string) error {
	if !json.Valid([]byte(jsonString)) {
		jsonBytes, _ := json.Marshal(jsonString)
		jsonString = string(jsonBytes)
	}

	if err := validate(dottedKey, jsonString); err != nil {
		return err
	}

	keys := strings.Split(dottedKey, ".")
	for i := len(keys) - 1; i >= 0; i-- {
		jsonString = fmt.Sprintf(`{ "%s": %s }`, keys[i], jsonString)
	}

	decoder := json.NewDecoder(strings.NewReader(jsonString))
	decoder.DisallowUnknownFields()

	return decoder.Decode(&cfg)
}

// Get gets the config sub-struct referenced by `key`, e.g. 'log.level'
func (cfg *Config) Get(key string) (interface{}, error) {
	v := reflect.Indirect(reflect.ValueOf(cfg))
	keyTags := strings.Split(key, ".")
OUTER:
	for j, keyTag := range keyTags {
		if v.Type().Kind() == reflect.Struct {
			for i := 0; i < v.NumField(); i++ {
				jsonTag := strings.Split(
					v.Type().Field(i).Tag.Get("json"),
					",")[0]
				if jsonTag == keyTag {
					v = v.Field(i)
					if j == len(keyTags)-1 {
						return v.Interface(), nil
					}
					v = reflect.Indirect(v)
					continue OUTER
				}
			}
		}

		return nil, errors.Errorf("key: %s invalid for config", key)
	}
	return nil, errors.New("empty key is invalid")
}

// validate runs validations on a given key and json string. validate uses the
// validators map defined at the top of this file to determine which validations
// to use for each key.
func validate(dottedKey string, jsonString string) error {
	var obj interface{}
	if err := json.Unmarshal([]byte(jsonString), &obj); err != nil {
		return err
	}
	// recursively validate sub-keys by partially unmarshalling
	if reflect.ValueOf(obj).Kind() == reflect.Map {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(jsonString), &obj); err != nil {
			return err
		}
		for key := range obj {
			if err := validate(dottedKey+"."+key, string(obj[key])); err != nil {
				return err
			}
		}
		return nil
	}

	if validationFunc, present := Validators[dottedKey]; present {
		return validationFunc(dottedKey, jsonString)
	}

	return nil
}

func unquote(key, value string) (string, error) {
	var s string
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return "", errors.Wrapf(err, `"%s" must be a string`, key)
	}
	return s, nil
}

// validateLettersOnly validates that a given value contains only letters. If it
// does not, an error is returned using the given key for the message.
func validateLettersOnly(key string, value string) error {
	if match, _ := regexp.MatchString("^\"[a-zA-Z]+\"$", value); !match {
		return errors.Errorf(`"%s" must only contain letters`, key)
	}
	return nil
}

func validateStrength(key string, value string) error {
	s, err := unquote(key, value)
	if err != nil {
		return err
	}
	if s != StrengthStandard && s != StrengthLight {
		return errors.Errorf(`"%s" must be %q or %q`, key, StrengthStandard, StrengthLight)
	}
	return nil
}

func validateDuration(key string, value string) error {
	s, err := unquote(key, value)
	if err != nil {
		return err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, `"%s" must be a duration`, key)
	}
	if d <= 0 {
		return errors.Errorf(`"%s" must be positive`, key)
	}
	return nil
}

func validateLevel(key string, value string) error {
	s, err := unquote(key, value)
	if err != nil {
		return err
	}
	switch s {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return errors.Errorf(`"%s" must be one of debug, info, warn, error`, key)
	}
}

func validateBackend(key string, value string) error {
	s, err := unquote(key, value)
	if err != nil {
		return err
	}
	if s != BackendBadger && s != BackendLevelDB {
		return errors.Errorf(`"%s" must be %q or %q`, key, BackendBadger, BackendLevelDB)
	}
	return nil
}
