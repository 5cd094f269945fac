// Package config handles input from etc/main.toml, the environment and built-in defaults.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. SPACEHOME_WEBSERVER_PORT.
	EnvPrefix = "SPACEHOME"

	// EnvConfigJSON holds a JSON document merged over everything else.
	EnvConfigJSON = "SPACEHOME_CONFIG_JSON"

	// SecretMask replaces secrets in dumps.
	SecretMask = "********"

	configFileName = "main.toml"
)

// envAliases binds well-known variable names used by typical deployments.
var envAliases = map[string]string{ //nolint:gochecknoglobals
	"admin.password":     "ADMIN_PASSWORD",
	"admin.passwordhash": "ADMIN_PASSWORD_HASH",
	"db.url":             "DATABASE_URL",
	"cache.url":          "REDIS_URL",
}

// ReadConfig from config directory and environment.
// A missing main.toml is not an error: defaults and env may carry the whole configuration.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envAliases {
		if err = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, errors.Wrap(err, "failed to bind env "+env)
		}
	}

	file := filepath.Join(path, configFileName)
	if _, err = os.Stat(file); err == nil {
		v.SetConfigFile(file)
		v.SetConfigType("toml")

		if err = v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "failed to read main config file")
		}
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

//nolint:mnd
func setDefaults(v *viper.Viper) {
	v.SetDefault("devmode", false)
	v.SetDefault("title", "spacehome")

	v.SetDefault("db.gormengine", EngineSQLite)
	v.SetDefault("db.url", "")
	v.SetDefault("db.path", "./spacehome.db")
	v.SetDefault("db.extras", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 0)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "spacehome")

	v.SetDefault("log.loglevel", "info")
	v.SetDefault("log.appname", "spacehome")
	v.SetDefault("log.servicename", "spacehome")
	v.SetDefault("log.reportcaller", false)
	v.SetDefault("log.enableaccesslogtoconsole", true)
	v.SetDefault("log.disablecheckalive", true)
	v.SetDefault("log.console.enabled", true)
	v.SetDefault("log.console.useconsolewriter", false)
	v.SetDefault("log.file.enabled", false)

	v.SetDefault("webserver.disablerecover", false)
	v.SetDefault("webserver.port", 3000)
	v.SetDefault("webserver.shutdowntime", 5)
	v.SetDefault("webserver.url", "http://localhost:3000")
	v.SetDefault("webserver.basepath", "/api")
	v.SetDefault("webserver.session.expirytime", 24*time.Hour)
	v.SetDefault("webserver.ratelimit.enabled", true)
	v.SetDefault("webserver.ratelimit.authmax", 10)
	v.SetDefault("webserver.ratelimit.chatmax", 20)
	v.SetDefault("webserver.ratelimit.expiration", time.Minute)

	v.SetDefault("admin.password", "")
	v.SetDefault("admin.passwordhash", "")
	v.SetDefault("admin.displayname", "admin")
	v.SetDefault("admin.avatar", "")
	v.SetDefault("admin.failuredelay", 100*time.Millisecond)

	v.SetDefault("cache.driver", "")
	v.SetDefault("cache.url", "")
	v.SetDefault("cache.table", "spacehome_cache")
	v.SetDefault("cache.expiration", time.Hour)

	v.SetDefault("chat.endpoint", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("chat.defaultmodel", "openai/gpt-4o-mini")
	v.SetDefault("chat.timeout", 30*time.Second)
	v.SetDefault("chat.historylimit", 10)
	v.SetDefault("chat.maxmessagelength", 2000)

	v.SetDefault("colorsample.timeout", 5*time.Second)
	v.SetDefault("colorsample.maxbytes", 5*1024*1024)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read "+EnvConfigJSON)
	}

	return c, nil
}

// masked returns a copy of c with secrets replaced.
func masked(c *Config) Config {
	out := *c

	for _, s := range []*string{&out.Admin.Password, &out.Admin.PasswordHash, &out.DB.Password} {
		if *s != "" {
			*s = SecretMask
		}
	}

	if out.DB.URL != "" {
		out.DB.URL = SecretMask
	}

	if out.Cache.URL != "" {
		out.Cache.URL = SecretMask
	}

	return out
}

// DumpConfig config as TOML String, secrets masked.
func DumpConfig(c *Config) (string, error) {
	out, err := toml.Marshal(masked(c))
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(out), nil
}

// DumpConfigJSON config as JSON String, secrets masked.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(masked(c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the settings the service can not start without.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return errors.Wrap(ErrAdminPasswordEmpty, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case EngineSQLite, EnginePostgres, EngineMySQL:
	default:
		return errors.Wrap(ErrUnknownGormEngine, c.DB.GormEngine)
	}

	switch c.Cache.Driver {
	case "", "none", EnginePostgres, EngineMySQL, "redis":
	default:
		return errors.Wrap(ErrUnknownCacheDriver, c.Cache.Driver)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Webserver.Session.ExpiryTime <= 0 {
		c.Webserver.Session.ExpiryTime = 24 * time.Hour //nolint:mnd
	}

	return nil
}
