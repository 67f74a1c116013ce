// Package config loads gatekeeper settings from config file, environment,
// and .env, and converts the configured rules into a policy rule set.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/git-pkgs/gatekeeper/internal/advisory"
	"github.com/git-pkgs/gatekeeper/internal/policy"
)

// Config is the loaded, session-scoped configuration. It is built once per
// invocation and passed explicitly; there is no package-level state.
type Config struct {
	AdvisoryURL string
	RegistryURL string

	// Token is the stored API token. Resolution order is explicit flag >
	// environment > config file; viper's env override handles the middle
	// tier, the flag layer overrides the final value.
	Token string

	BatchSize      int
	Concurrency    int
	TimeoutSeconds int

	Nothrow     bool
	FailClosed  bool
	ResolveTags bool

	Rules map[string]string
}

// Load reads configuration. With an explicit cfgFile the file must exist;
// otherwise a gatekeeper.yaml is searched in the working directory and
// ~/.config/gatekeeper, and absence is fine. GATEKEEPER_* environment
// variables override file values; a .env file is honored when present.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gatekeeper")
		v.SetConfigName("gatekeeper")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GATEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("advisory_url", "")
	v.SetDefault("registry_url", "")
	v.SetDefault("token", "")
	v.SetDefault("batch_size", advisory.DefaultBatchSize)
	v.SetDefault("concurrency", advisory.DefaultConcurrency)
	v.SetDefault("timeout", 30)
	v.SetDefault("nothrow", false)
	v.SetDefault("fail_closed", false)
	v.SetDefault("resolve_tags", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return &Config{
		AdvisoryURL:    v.GetString("advisory_url"),
		RegistryURL:    v.GetString("registry_url"),
		Token:          v.GetString("token"),
		BatchSize:      v.GetInt("batch_size"),
		Concurrency:    v.GetInt("concurrency"),
		TimeoutSeconds: v.GetInt("timeout"),
		Nothrow:        v.GetBool("nothrow"),
		FailClosed:     v.GetBool("fail_closed"),
		ResolveTags:    v.GetBool("resolve_tags"),
		Rules:          v.GetStringMapString("rules"),
	}, nil
}

// RuleSet converts the configured rules into a policy rule set: defaults
// first, then per-category overrides. Unknown actions are an error rather
// than a silent allow.
func (c *Config) RuleSet() (policy.RuleSet, error) {
	rules := policy.DefaultRules()
	rules.FailClosed = c.FailClosed

	for category, action := range c.Rules {
		parsed := policy.Action(strings.ToLower(action))
		switch parsed {
		case policy.Ignore, policy.Warn, policy.Error:
			rules.Rules[advisory.CategoryFromString(category)] = parsed
		default:
			return policy.RuleSet{}, fmt.Errorf("rule %q: unknown action %q (want ignore, warn, or error)", category, action)
		}
	}
	return rules, nil
}
