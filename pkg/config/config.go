// Package config resolves moodlog settings from a .moodlog.yaml file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Backend names a remote store implementation.
type Backend string

const (
	BackendDiskv  Backend = "diskv"
	BackendMongo  Backend = "mongo"
	BackendMemory Backend = "memory"
)

// ParseBackend accepts a backend name in any case. Blank means diskv.
func ParseBackend(raw string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(raw))); b {
	case "":
		return BackendDiskv, nil
	case BackendDiskv, BackendMongo, BackendMemory:
		return b, nil
	default:
		return "", fmt.Errorf("config: unknown backend %q", raw)
	}
}

type Config interface {
	BasePath() string
	Subject() string
	Backend() Backend
	MongoURI() string
	MongoDatabase() string
	Offline() bool
	SyncSchedule() string
	HTTPAddr() string
}

// Settings is the plain Config implementation.
type Settings struct {
	Path          string  `json:"path"`
	User          string  `json:"subject"`
	Store         Backend `json:"backend"`
	Mongo         string  `json:"mongoURI,omitempty"`
	Database      string  `json:"mongoDatabase,omitempty"`
	StartOffline  bool    `json:"offline,omitempty"`
	Schedule      string  `json:"syncSchedule,omitempty"`
	ListenAddress string  `json:"httpAddr,omitempty"`
}

func (s *Settings) BasePath() string      { return s.Path }
func (s *Settings) Subject() string       { return s.User }
func (s *Settings) Backend() Backend      { return s.Store }
func (s *Settings) MongoURI() string      { return s.Mongo }
func (s *Settings) MongoDatabase() string { return s.Database }
func (s *Settings) Offline() bool         { return s.StartOffline }
func (s *Settings) SyncSchedule() string  { return s.Schedule }
func (s *Settings) HTTPAddr() string      { return s.ListenAddress }

// Validate checks the settings a backend needs.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.User) == "" {
		return errors.New("config: subject required (set MOODLOG_SUBJECT or subject in .moodlog.yaml)")
	}
	switch s.Store {
	case BackendDiskv:
		if s.Path == "" {
			return errors.New("config: path required for the diskv backend")
		}
	case BackendMongo:
		if s.Mongo == "" {
			return errors.New("config: mongo.uri required for the mongo backend")
		}
	}
	return nil
}

// LoadConfig reads .moodlog.yaml from MOODLOG_CONFIG_PATH, the working
// directory or the home directory. MOODLOG_* environment variables override
// the file. A .env file in the working directory is loaded first when present.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("config: could not load .env", "err", err)
	}

	v := viper.New()
	v.SetDefault("path", "~/.moodlog.db")
	v.SetDefault("subject", os.Getenv("USER"))
	v.SetDefault("backend", string(BackendDiskv))
	v.SetDefault("mongo.database", "moodlog")
	v.SetDefault("sync.schedule", "@every 1m")
	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetConfigName(".moodlog") // .yaml is implicit
	v.SetEnvPrefix("MOODLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv("MOODLOG_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: error reading config file: %w", err)
		}
	}

	backend, err := ParseBackend(v.GetString("backend"))
	if err != nil {
		return nil, err
	}
	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("config: expand path: %w", err)
	}

	return &Settings{
		Path:          path,
		User:          strings.TrimSpace(v.GetString("subject")),
		Store:         backend,
		Mongo:         v.GetString("mongo.uri"),
		Database:      v.GetString("mongo.database"),
		StartOffline:  v.GetBool("offline"),
		Schedule:      v.GetString("sync.schedule"),
		ListenAddress: v.GetString("http.addr"),
	}, nil
}
