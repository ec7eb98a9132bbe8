package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sgeisler/testinator/internal/constants"
	"github.com/sgeisler/testinator/internal/errors"
)

// newViperInstance creates a Viper instance with defaults and TESTINATOR_ env support.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// viperDecoderOption returns the decode hooks used to unmarshal the configuration.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// Load reads, resolves and validates the configuration file at path.
// Any problem is returned wrapped around errors.ErrConfigInvalid or
// errors.ErrConfigNotFound and must abort the run before work starts.
func Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		return nil, errors.Join(errors.ErrConfigInvalid, errors.Wrap(errors.ErrEmptyValue, "config path"))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrConfigNotFound, "%s", path)
	}

	v := newViperInstance()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Join(errors.ErrConfigInvalid, errors.Wrap(err, "failed to read config file"))
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	if err := resolveRepo(cfg, path); err != nil {
		return nil, err
	}
	if err := resolveWorkDir(cfg, path); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("config", path).
		Str("repo", cfg.Repo).
		Int("toolchains", len(cfg.Rust)).
		Int("features", len(cfg.Features)).
		Int("par", cfg.Par).
		Bool("fuzzing", cfg.Fuzzing != nil).
		Msg("configuration loaded")

	return cfg, nil
}

// unmarshalAndValidate unmarshals viper config into Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Join(errors.ErrConfigInvalid, errors.Wrap(err, "failed to unmarshal config"))
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveRepo makes cfg.Repo absolute relative to the config file and checks
// that it is a directory.
func resolveRepo(cfg *Config, configPath string) error {
	repo := cfg.Repo
	if !filepath.IsAbs(repo) {
		repo = filepath.Join(filepath.Dir(configPath), repo)
	}
	repo, err := filepath.Abs(repo)
	if err != nil {
		return errors.Join(errors.ErrConfigInvalid, errors.Wrap(err, "resolve repo path"))
	}

	info, err := os.Stat(repo)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.Wrapf(errors.ErrConfigInvalid, "repo %s does not exist", repo)
		}
		return errors.Join(errors.ErrConfigInvalid, err)
	}
	if !info.IsDir() {
		return errors.Wrapf(errors.ErrConfigInvalid, "repo %s is not a directory", repo)
	}

	cfg.Repo = repo
	return nil
}

// resolveWorkDir makes a relative cfg.WorkDir absolute against the config
// file's directory. The directory must already exist.
func resolveWorkDir(cfg *Config, configPath string) error {
	if cfg.WorkDir == "" {
		return nil
	}
	dir := cfg.WorkDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(configPath), dir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return errors.Join(errors.ErrConfigInvalid, errors.Wrap(err, "resolve work_dir"))
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return errors.Wrapf(errors.ErrConfigInvalid, "work_dir %s is not a directory", dir)
	}

	cfg.WorkDir = dir
	return nil
}
