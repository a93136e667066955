// Copyright (C) 2023 The Gala Authors.
//
// This file is part of Gala.
//
// Gala is free software: you can redistribute it and/or modify it under the
// terms of the GNU Affero General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.
//
// Gala is distributed in the hope that it will be useful, but WITHOUT ANY
// WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for
// more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with Gala.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/edmundjohnson/gala"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Driver  string
	Source  string
	LogMode bool
}

type AuthConfig struct {
	DB            DatabaseConfig
	MaxAge        time.Duration
	Secret        string
	SecureCookies bool
}

type RemoteConfig struct {
	DB DatabaseConfig
}

type CacheConfig struct {
	DB           DatabaseConfig
	SyncInterval time.Duration
	SearchLimit  int
}

type ClientConfig struct {
	CacheDir  string
	MaxAge    time.Duration
	UseCache  bool
	UserAgent string
	Timeout   time.Duration
}

type TMDBAPIConfig struct {
	Key      string
	Language string
}

type SearchConfig struct {
	BleveDir string
}

type ServerConfig struct {
	Listen string
	URL    string
}

type Config struct {
	Auth    AuthConfig
	Cache   CacheConfig
	Client  ClientConfig
	DataDir string
	Remote  RemoteConfig
	Search  SearchConfig
	Server  ServerConfig
	TMDB    TMDBAPIConfig
}

func configDefaults(v *viper.Viper) {
	v.SetDefault("Auth.DB.Driver", "sqlite3")
	v.SetDefault("Auth.DB.LogMode", "false")
	v.SetDefault("Auth.DB.Source", "auth.db")
	v.SetDefault("Auth.MaxAge", "24h")
	v.SetDefault("Auth.Secret", "")
	v.SetDefault("Auth.SecureCookies", "true")

	v.SetDefault("Cache.DB.Driver", "sqlite3")
	v.SetDefault("Cache.DB.Source", "cache.db")
	v.SetDefault("Cache.DB.LogMode", "false")
	v.SetDefault("Cache.SyncInterval", "1h")
	v.SetDefault("Cache.SearchLimit", "100")

	v.SetDefault("Client.CacheDir", ".httpcache")
	v.SetDefault("Client.MaxAge", "720h") // 30 days in hours
	v.SetDefault("Client.UseCache", "false")
	v.SetDefault("Client.UserAgent", userAgent())
	v.SetDefault("Client.Timeout", "30s")

	v.SetDefault("DataDir", ".")

	v.SetDefault("Remote.DB.Driver", "sqlite3")
	v.SetDefault("Remote.DB.Source", "remote.db")
	v.SetDefault("Remote.DB.LogMode", "false")

	v.SetDefault("Search.BleveDir", ".")

	v.SetDefault("Server.Listen", "127.0.0.1:3000")
	v.SetDefault("Server.URL", "https://example.com") // w/o trailing slash

	v.SetDefault("TMDB.Key", "903a776b0638da68e9ade38ff538e1d3")
	v.SetDefault("TMDB.Language", "en-US")
}

func userAgent() string {
	return gala.AppName + "/" + gala.Version + " ( " + gala.Contact + " ) "
}

func readConfig(v *viper.Viper) (*Config, error) {
	var config Config
	var pathRegexp = regexp.MustCompile(`(file|dir|source)$`)
	err := v.ReadInConfig()
	dir := filepath.Dir(v.ConfigFileUsed())
	for _, k := range v.AllKeys() {
		if pathRegexp.MatchString(k) {
			val := v.Get(k)
			if strings.HasPrefix(val.(string), "/") == false {
				val = fmt.Sprintf("%s/%s", dir, val.(string))
				v.Set(k, val)
			}
		}
	}
	if err == nil {
		err = v.Unmarshal(&config)
	}
	return &config, err
}

// TestConfig returns a config with all databases and index files rooted
// below dir, intended for use with testing.T TempDir.
func TestConfig(dir string) (*Config, error) {
	v := viper.New()
	configDefaults(v)
	v.SetConfigFile(filepath.Join(dir, "test.yaml"))
	v.SetDefault("Auth.DB.Source", filepath.Join(dir, "auth.db"))
	v.SetDefault("Auth.Secret", "test")
	v.SetDefault("Cache.DB.Source", filepath.Join(dir, "cache.db"))
	v.SetDefault("Remote.DB.Source", filepath.Join(dir, "remote.db"))
	v.SetDefault("Search.BleveDir", dir)
	var config Config
	err := v.Unmarshal(&config)
	return &config, err
}

var configFile, configPath, configName string

func SetConfigFile(path string) {
	configFile = path
}

func AddConfigPath(path string) {
	configPath = path
}

func SetConfigName(name string) {
	configName = name
}

func GetConfig() (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	if configName != "" {
		v.SetConfigName(configName)
	}
	configDefaults(v)
	return readConfig(v)
}

func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	configDefaults(v)
	return readConfig(v)
}
