package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SchoolDefaults are operator-tunable defaults applied to newly registered
// schools and used as fallbacks where a school has no explicit setting.
type SchoolDefaults struct {
	TermsPerYear  int    `mapstructure:"termsPerYear"`
	Currency      string `mapstructure:"currency"`
	ReceiptPrefix string `mapstructure:"receiptPrefix"`

	Promotion PromotionDefaults `mapstructure:"promotion"`
}

// PromotionDefaults seed the promotion criteria created for a new school.
type PromotionDefaults struct {
	MaxFeeBalance        int64   `mapstructure:"maxFeeBalance"`
	MinAverageGrade      float64 `mapstructure:"minAverageGrade"`
	MinAttendanceRate    float64 `mapstructure:"minAttendanceRate"`
	MaxDisciplinaryCases int     `mapstructure:"maxDisciplinaryCases"`
}

func DefaultSchoolDefaults() SchoolDefaults {
	return SchoolDefaults{
		TermsPerYear:  3,
		Currency:      "UGX",
		ReceiptPrefix: "RCT",
		Promotion: PromotionDefaults{
			MaxFeeBalance:        0,
			MinAverageGrade:      50,
			MinAttendanceRate:    75,
			MaxDisciplinaryCases: 3,
		},
	}
}

// SchoolDefaultsHolder exposes the current defaults and hot-reloads them when
// the config file changes.
type SchoolDefaultsHolder struct {
	current atomic.Value // holds SchoolDefaults
}

func NewSchoolDefaultsHolder() (*SchoolDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("school")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/shulekit/config")
	v.AddConfigPath("/etc/shulekit")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHULEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSchoolDefaults()
		v.SetDefault("school.termsPerYear", defaults.TermsPerYear)
		v.SetDefault("school.currency", defaults.Currency)
		v.SetDefault("school.receiptPrefix", defaults.ReceiptPrefix)
		v.SetDefault("school.promotion", defaults.Promotion)
	}

	var cfg SchoolDefaults
	if err := v.UnmarshalKey("school", &cfg); err != nil {
		return nil, err
	}
	if err := validateSchoolDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &SchoolDefaultsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SchoolDefaults
		if err := v.UnmarshalKey("school", &updated); err != nil {
			log.Printf("[school-config] reload failed: %v", err)
			return
		}
		if err := validateSchoolDefaults(updated); err != nil {
			log.Printf("[school-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[school-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *SchoolDefaultsHolder) Get() SchoolDefaults {
	return h.current.Load().(SchoolDefaults)
}

// StaticSchoolDefaultsHolder returns a holder pinned to the given defaults,
// with no file watching. Intended for tests.
func StaticSchoolDefaultsHolder(cfg SchoolDefaults) *SchoolDefaultsHolder {
	holder := &SchoolDefaultsHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateSchoolDefaults(cfg SchoolDefaults) error {
	if cfg.TermsPerYear < 1 || cfg.TermsPerYear > 9 {
		return errors.New("school.termsPerYear must be between 1 and 9")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("school.currency cannot be empty")
	}
	return nil
}
