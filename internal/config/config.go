package config

import (
	"fmt"
	"math"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/skalibog/oema/pkg/logger"
)

var validate = validator.New()

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Trading  TradingConfig  `yaml:"trading" validate:"required"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage" validate:"required"`
	UI       UIConfig       `yaml:"ui"`
	LogLevel string         `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит отслеживаемые символы и таймфреймы
type TradingConfig struct {
	Symbols    []string          `yaml:"symbols" validate:"required,min=1"`
	Timeframes []TimeframeConfig `yaml:"timeframes" validate:"required,min=1,dive"`
}

// TimeframeConfig описывает один таймфрейм оценки: цепочка фильтруется
// по горизонту экспирации. Таймфреймы перечисляются от короткого к длинному.
type TimeframeConfig struct {
	Name            string  `yaml:"name" validate:"required"`
	MaxDaysToExpiry float64 `yaml:"max_days_to_expiry" validate:"required,gt=0"`
}

// AnalysisConfig содержит настройки всех стадий пайплайна
type AnalysisConfig struct {
	IntervalSeconds int              `yaml:"interval_seconds" default:"60" validate:"gt=0"`
	VolWindow       int              `yaml:"vol_window" default:"20" validate:"gt=1"`
	DealerSign      DealerSignConfig `yaml:"dealer_sign"`
	Gamma           GammaConfig      `yaml:"gamma"`
	Vanna           VannaConfig      `yaml:"vanna"`
	Charm           CharmConfig      `yaml:"charm"`
	Elasticity      ElasticityConfig `yaml:"elasticity"`
	Energy          EnergyConfig     `yaml:"energy"`
	Regime          RegimeConfig     `yaml:"regime"`
	Fusion          FusionConfig     `yaml:"fusion"`
}

// DealerSignConfig настройки оценки знака дилерской экспозиции
type DealerSignConfig struct {
	GammaSignThreshold float64 `yaml:"gamma_sign_threshold" default:"1000" validate:"gt=0"`
	MinStrikes         int     `yaml:"min_strikes" default:"10" validate:"gt=0"`
	LiquidityFloor     float64 `yaml:"liquidity_floor" default:"10000" validate:"gt=0"`
	LiquidityBoost     float64 `yaml:"liquidity_boost" default:"1.2" validate:"gte=1"`
}

// GammaConfig настройки построения гамма-поля
type GammaConfig struct {
	DecayRate        float64 `yaml:"decay_rate" default:"5.0" validate:"gt=0"`
	SqueezeThreshold float64 `yaml:"squeeze_threshold" default:"500000" validate:"gt=0"`
	PinThreshold     float64 `yaml:"pin_threshold" default:"50000" validate:"gt=0"`
	PinOIThreshold   float64 `yaml:"pin_oi_threshold" default:"5000" validate:"gt=0"`
	PinGapPct        float64 `yaml:"pin_gap_pct" default:"0.02" validate:"gt=0"`
}

// VannaConfig настройки построения ванна-поля
type VannaConfig struct {
	DecayRate         float64 `yaml:"decay_rate" default:"5.0" validate:"gt=0"`
	HighThreshold     float64 `yaml:"high_threshold" default:"100000" validate:"gt=0"`
	LowThreshold      float64 `yaml:"low_threshold" default:"10000" validate:"gt=0"`
	VIXSplit          float64 `yaml:"vix_split" default:"25" validate:"gt=0"`
	VovThreshold      float64 `yaml:"vov_threshold" default:"1.0" validate:"gt=0"`
	ShockAbsorberCoef float64 `yaml:"shock_absorber_coef" default:"2.0" validate:"gt=0"`
}

// CharmConfig настройки построения чарм-поля
type CharmConfig struct {
	DecayRate            float64 `yaml:"decay_rate" default:"5.0" validate:"gt=0"`
	HighThreshold        float64 `yaml:"high_threshold" default:"50000" validate:"gt=0"`
	AccelThreshold       float64 `yaml:"accel_threshold" default:"0.5" validate:"gt=0"`
	MaxDecayAcceleration float64 `yaml:"max_decay_acceleration" default:"3.0" validate:"gt=0"`
	DefaultDaysToExpiry  float64 `yaml:"default_days_to_expiry" default:"5" validate:"gt=0"`
}

// ElasticityConfig настройки расчета эластичности
type ElasticityConfig struct {
	Base             float64 `yaml:"base" default:"1.0" validate:"gt=0"`
	GammaScale       float64 `yaml:"gamma_scale" default:"0.000001" validate:"gt=0"`
	VannaScale       float64 `yaml:"vanna_scale" default:"0.000001" validate:"gt=0"`
	CharmScale       float64 `yaml:"charm_scale" default:"0.000001" validate:"gt=0"`
	VIXCoef          float64 `yaml:"vix_coef" default:"0.01" validate:"gte=0"`
	OIDensityScale   float64 `yaml:"oi_density_scale" default:"0.5" validate:"gte=0"`
	LiquidityScale   float64 `yaml:"liquidity_scale" default:"1.0" validate:"gte=0"`
	DirectionalScale float64 `yaml:"directional_scale" default:"0.0000001" validate:"gte=0"`
	Floor            float64 `yaml:"floor" default:"0.05" validate:"gt=0"`
}

// EnergyConfig настройки расчета энергии движения
type EnergyConfig struct {
	ImbalanceWeight         float64 `yaml:"imbalance_weight" default:"0.6" validate:"gt=0"`
	InverseElasticityWeight float64 `yaml:"inverse_elasticity_weight" default:"0.4" validate:"gt=0"`
	DestabilizingBoost      float64 `yaml:"destabilizing_boost" default:"1.5" validate:"gte=1"`
}

// RegimeConfig настройки классификации режима
type RegimeConfig struct {
	VovJumpThreshold        float64 `yaml:"vov_jump_threshold" default:"1.2" validate:"gt=0"`
	VIXJumpThreshold        float64 `yaml:"vix_jump_threshold" default:"30" validate:"gt=0"`
	AccelJumpThreshold      float64 `yaml:"accel_jump_threshold" default:"0.7" validate:"gt=0"`
	SqueezeJumpMultiplier   float64 `yaml:"squeeze_jump_multiplier" default:"1.5" validate:"gte=1"`
	HighJumpScore           float64 `yaml:"high_jump_score" default:"2.0" validate:"gt=0"`
	ModerateJumpScore       float64 `yaml:"moderate_jump_score" default:"1.0" validate:"gt=0"`
	VannaExtremeThreshold   float64 `yaml:"vanna_extreme_threshold" default:"100000" validate:"gt=0"`
	CubicGammaThreshold     float64 `yaml:"cubic_gamma_threshold" default:"300000" validate:"gt=0"`
	QuarticGammaThreshold   float64 `yaml:"quartic_gamma_threshold" default:"1000000" validate:"gt=0"`
	DoubleWellVannaModifier float64 `yaml:"double_well_vanna_modifier" default:"1.5" validate:"gt=1"`
	VIXHigh                 float64 `yaml:"vix_high" default:"30" validate:"gt=0"`
	VIXElevated             float64 `yaml:"vix_elevated" default:"20" validate:"gt=0"`
}

// FusionConfig настройки слияния таймфреймов. Четыре веса смеси
// эвристик должны в сумме давать 1.
type FusionConfig struct {
	EnergyBlendWeight     float64 `yaml:"energy_blend_weight" default:"0.4" validate:"gte=0,lte=1"`
	StabilityBlendWeight  float64 `yaml:"stability_blend_weight" default:"0.3" validate:"gte=0,lte=1"`
	JumpBlendWeight       float64 `yaml:"jump_blend_weight" default:"0.2" validate:"gte=0,lte=1"`
	VolatilityBlendWeight float64 `yaml:"volatility_blend_weight" default:"0.1" validate:"gte=0,lte=1"`
	StabilityDecay        float64 `yaml:"stability_decay" default:"0.3" validate:"gt=0,lt=1"`
	StabilityThreshold    float64 `yaml:"stability_threshold" default:"0.5" validate:"gt=0,lt=1"`
	VovPenaltyThreshold   float64 `yaml:"vov_penalty_threshold" default:"1.0" validate:"gt=0"`
	VovPenaltyCoef        float64 `yaml:"vov_penalty_coef" default:"0.5" validate:"gt=0"`
	MinVolatilityPenalty  float64 `yaml:"min_volatility_penalty" default:"0.3" validate:"gt=0,lte=1"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	Type         string `yaml:"type" default:"influxdb"`
	URL          string `yaml:"url" validate:"required"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization" validate:"required"`
	Bucket       string `yaml:"bucket" validate:"required"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	RefreshRate int  `yaml:"refresh_rate_ms" default:"1000" validate:"gt=0"`
	ShowZones   bool `yaml:"show_zones"`
}

// Load загружает конфигурацию из файла, подставляет значения по
// умолчанию и валидирует ее. Отсутствие обязательного параметра —
// ошибка программирования вызывающей стороны, поэтому возвращается
// сразу, без тихого отката к значениям по умолчанию.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("ошибка установки значений по умолчанию: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("config", config))
	logger.Info("Загружена конфигурация", zap.Any("symbols", config.Trading.Symbols))
	return &config, nil
}

// Validate проверяет конфигурацию один раз при загрузке
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}

	f := c.Analysis.Fusion
	blendSum := f.EnergyBlendWeight + f.StabilityBlendWeight + f.JumpBlendWeight + f.VolatilityBlendWeight
	if math.Abs(blendSum-1.0) > 0.01 {
		return fmt.Errorf("веса смеси эвристик слияния дают в сумме %.3f, ожидается 1.0", blendSum)
	}

	return nil
}

// DefaultAnalysis возвращает конфигурацию анализа со значениями по
// умолчанию (используется в тестах и как база для переопределений)
func DefaultAnalysis() AnalysisConfig {
	var cfg AnalysisConfig
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
