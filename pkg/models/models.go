package models

import (
	"time"
)

// OptionType тип опционного контракта
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionContract представляет один контракт опционной цепочки
type OptionContract struct {
	Strike       float64
	Type         OptionType
	Gamma        float64
	Vanna        float64
	Charm        float64
	OpenInterest float64
	DaysToExpiry float64
}

// ChainSnapshot представляет неизменяемый снимок опционной цепочки
// с рыночным контекстом. Создается коллектором данных, пайплайн
// анализа только читает его.
type ChainSnapshot struct {
	Symbol                string
	Contracts             []OptionContract
	SpotPrice             float64
	VIX                   float64
	VolOfVol              float64
	LiquidityLambda       float64
	CrossAssetCorrelation float64
	Timestamp             time.Time
}

// Метки суб-режимов гамма-поля (порядок правил имеет значение)
const (
	GammaShortSqueeze    = "short_gamma_squeeze"
	GammaLongCompression = "long_gamma_compression"
	GammaLowExpansion    = "low_gamma_expansion"
)

// Метки суб-режимов ванна-поля
const (
	VannaHighHighVol = "high_vanna_high_vol"
	VannaHighLowVol  = "high_vanna_low_vol"
	VannaLowStable   = "low_vanna_stable"
)

// Метки суб-режимов чарм-поля
const (
	CharmExpirationMagnet = "expiration_magnet"
	CharmDrift            = "charm_drift"
)

// Метки риска скачка (jump-diffusion)
const (
	JumpRiskHigh       = "high_jump_risk"
	JumpRiskModerate   = "moderate_jump_risk"
	JumpRiskContinuous = "continuous_diffusion"
)

// Метки режима волатильности
const (
	VolatilityHigh     = "high_volatility"
	VolatilityElevated = "elevated_volatility"
	VolatilityLow      = "low_volatility"
)

// Формы подразумеваемого потенциала
const (
	ShapeQuadratic  = "quadratic"
	ShapeCubic      = "cubic"
	ShapeDoubleWell = "double_well"
	ShapeQuartic    = "quartic"
)

// RegimeNeutral нейтральная метка, общая для всех классификаторов
const RegimeNeutral = "neutral"

// DealerSignResult представляет оценку знака дилерской экспозиции
type DealerSignResult struct {
	NetDealerGamma         float64
	NetDealerVanna         float64
	NetDealerCharm         float64
	DealerSign             float64 // [-1, 1]
	Confidence             float64 // [0, 1]
	OIWeightedStrikeCenter float64
}

// PinZone представляет диапазон страйков с концентрированным
// открытым интересом (ценовой "магнит" около экспирации)
type PinZone struct {
	Low  float64
	High float64
}

// StrikeWeights представляет карту страйк → взвешенное значение
// в виде отсортированных параллельных массивов
type StrikeWeights struct {
	Strikes []float64
	Values  []float64
}

// GreekFieldResult представляет поле давления одного грека.
// PinZones и StrikeGamma заполняются только гамма-полем,
// ShockAbsorber — только ванной, DecayAcceleration — только чармом.
type GreekFieldResult struct {
	Exposure          float64
	PressureUp        float64
	PressureDown      float64
	SubRegime         string
	PinZones          []PinZone
	StrikeGamma       StrikeWeights
	ShockAbsorber     float64
	DecayAcceleration float64
}

// ElasticityResult представляет жесткость рынка. Инвариант: все три
// значения эластичности строго положительны.
type ElasticityResult struct {
	Elasticity        float64
	ElasticityUp      float64
	ElasticityDown    float64
	AsymmetryRatio    float64
	GammaComponent    float64
	VannaModifier     float64
	CharmModifier     float64
	OIDensityModifier float64
	LiquidityFriction float64
}

// MovementEnergyResult представляет оценку энергии движения цены
type MovementEnergyResult struct {
	PressureUp             float64
	PressureDown           float64
	EnergyUp               float64
	EnergyDown             float64
	NetEnergy              float64
	EnergyAsymmetry        float64
	BarrierStrength        float64
	AccelerationLikelihood float64 // [0, 1]
}

// RegimeResult представляет многомерную классификацию режима
type RegimeResult struct {
	PrimaryRegime         string
	GammaRegime           string
	VannaRegime           string
	CharmRegime           string
	JumpRiskRegime        string
	VolatilityRegime      string
	PotentialShape        string
	JumpRiskScore         float64
	RegimeConfidence      float64 // [0, 1]
	RegimeStability       float64 // [0, 1]
	CrossAssetCorrelation float64 // [-1, 1]
}

// TimeframeResult представляет полный выход пайплайна для одного
// таймфрейма
type TimeframeResult struct {
	Timeframe  string
	VolOfVol   float64
	DealerSign *DealerSignResult
	Gamma      *GreekFieldResult
	Vanna      *GreekFieldResult
	Charm      *GreekFieldResult
	Elasticity *ElasticityResult
	Energy     *MovementEnergyResult
	Regime     *RegimeResult
}

// FusedResult представляет слитый по таймфреймам результат
type FusedResult struct {
	Symbol             string
	Timestamp          time.Time
	Timeframes         []string
	Weights            []float64 // сумма равна 1
	FusedPressureUp    float64
	FusedPressureDown  float64
	FusedNetPressure   float64
	FusedElasticity    float64
	FusedEnergy        float64
	PrimaryRegime      string
	RealizedMoveScore  float64 // [0, 1]
	AdaptiveConfidence float64 // [0, 1]
}

// PipelineResult представляет результат полного цикла оценки
// по всем таймфреймам для одного символа
type PipelineResult struct {
	Symbol     string
	Timestamp  time.Time
	Timeframes []*TimeframeResult
	Fused      *FusedResult
}
