package regime

import (
	"math"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// Analyzer синтезирует выходы всех стадий в многомерную метку режима.
// Чистая функция входов: внутреннего автомата состояний нет.
type Analyzer struct {
	config config.RegimeConfig
}

// NewAnalyzer создает новый классификатор режима
func NewAnalyzer(cfg config.RegimeConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// rule одно правило классификации: приоритет задается порядком в
// списке, срабатывает первое совпадение
type rule struct {
	label string
	match func() bool
}

// Analyze классифицирует текущий режим по выходам всех стадий
func (a *Analyzer) Analyze(
	snapshot *models.ChainSnapshot,
	dealer *models.DealerSignResult,
	gamma, vanna, charm *models.GreekFieldResult,
	elast *models.ElasticityResult,
	energy *models.MovementEnergyResult,
) *models.RegimeResult {
	result := &models.RegimeResult{
		GammaRegime: gamma.SubRegime,
		VannaRegime: vanna.SubRegime,
		CharmRegime: charm.SubRegime,
	}

	result.JumpRiskScore = a.jumpRiskScore(snapshot, gamma.SubRegime, energy.AccelerationLikelihood)
	result.JumpRiskRegime = a.jumpRiskRegime(result.JumpRiskScore)
	result.VolatilityRegime = a.volatilityRegime(snapshot.VIX)
	result.PrimaryRegime = a.primaryRegime(result.JumpRiskRegime, gamma, vanna, charm)
	result.PotentialShape = a.potentialShape(result.JumpRiskRegime, dealer, gamma, vanna, elast)

	result.RegimeConfidence = a.confidence(result)
	result.RegimeStability = clamp01(elast.Elasticity / (energy.BarrierStrength + 1.0))
	result.CrossAssetCorrelation = clamp(snapshot.CrossAssetCorrelation, -1.0, 1.0)

	return result
}

// jumpRiskScore суммирует избыток vol-of-vol над порогом (вес 2),
// избыток VIX над порогом (делитель 20) и вероятность ускорения при
// превышении ее порога; сквиз короткой гаммы умножает итог
func (a *Analyzer) jumpRiskScore(snapshot *models.ChainSnapshot, gammaRegime string, accel float64) float64 {
	score := 0.0

	if snapshot.VolOfVol > a.config.VovJumpThreshold {
		score += (snapshot.VolOfVol - a.config.VovJumpThreshold) * 2.0
	}
	if snapshot.VIX > a.config.VIXJumpThreshold {
		score += (snapshot.VIX - a.config.VIXJumpThreshold) / 20.0
	}
	if accel > a.config.AccelJumpThreshold {
		score += accel
	}

	if gammaRegime == models.GammaShortSqueeze {
		score *= a.config.SqueezeJumpMultiplier
	}

	return score
}

// jumpRiskRegime раскладывает счет риска скачка по корзинам
func (a *Analyzer) jumpRiskRegime(score float64) string {
	switch {
	case score > a.config.HighJumpScore:
		return models.JumpRiskHigh
	case score > a.config.ModerateJumpScore:
		return models.JumpRiskModerate
	default:
		return models.JumpRiskContinuous
	}
}

// volatilityRegime классифицирует режим волатильности по уровню VIX
func (a *Analyzer) volatilityRegime(vix float64) string {
	switch {
	case vix > a.config.VIXHigh:
		return models.VolatilityHigh
	case vix > a.config.VIXElevated:
		return models.VolatilityElevated
	default:
		return models.VolatilityLow
	}
}

// primaryRegime разрешает главный режим иерархически: риск скачка →
// экстремумы гаммы → экстремумы ванны → экстремумы чарма → нейтрально.
// Приоритет задан явным упорядоченным списком правил.
func (a *Analyzer) primaryRegime(jumpRegime string, gamma, vanna, charm *models.GreekFieldResult) string {
	rules := []rule{
		{models.JumpRiskHigh, func() bool {
			return jumpRegime == models.JumpRiskHigh
		}},
		{gamma.SubRegime, func() bool {
			return gamma.SubRegime == models.GammaShortSqueeze || gamma.SubRegime == models.GammaLongCompression
		}},
		{vanna.SubRegime, func() bool {
			return vanna.SubRegime == models.VannaHighHighVol || vanna.SubRegime == models.VannaHighLowVol
		}},
		{charm.SubRegime, func() bool {
			return charm.SubRegime == models.CharmExpirationMagnet || charm.SubRegime == models.CharmDrift
		}},
	}

	for _, r := range rules {
		if r.match() {
			return r.label
		}
	}
	return models.RegimeNeutral
}

// potentialShape подбирает геометрию подразумеваемого потенциала:
// по величине гаммы quadratic → cubic, с переопределением на
// double_well при большой ванне у короткого по гамме дилера и на
// quartic при высоком риске скачка или экстремальной гамме
func (a *Analyzer) potentialShape(
	jumpRegime string,
	dealer *models.DealerSignResult,
	gamma, vanna *models.GreekFieldResult,
	elast *models.ElasticityResult,
) string {
	gammaMagnitude := math.Abs(gamma.Exposure)

	shape := models.ShapeQuadratic
	if gammaMagnitude > a.config.CubicGammaThreshold {
		shape = models.ShapeCubic
	}

	if math.Abs(vanna.Exposure) > a.config.VannaExtremeThreshold &&
		dealer.DealerSign < 0 &&
		elast.VannaModifier > a.config.DoubleWellVannaModifier {
		shape = models.ShapeDoubleWell
	}

	if jumpRegime == models.JumpRiskHigh || gammaMagnitude > a.config.QuarticGammaThreshold {
		shape = models.ShapeQuartic
	}

	return shape
}

// confidence считает долю не-нейтральных суб-режимов среди гаммы,
// ванны, чарма и риска скачка
func (a *Analyzer) confidence(result *models.RegimeResult) float64 {
	count := 0
	if result.GammaRegime != models.RegimeNeutral {
		count++
	}
	if result.VannaRegime != models.RegimeNeutral {
		count++
	}
	if result.CharmRegime != models.RegimeNeutral {
		count++
	}
	if result.JumpRiskRegime != models.JumpRiskContinuous {
		count++
	}
	return 0.25 * float64(count)
}

func clamp01(value float64) float64 {
	return clamp(value, 0.0, 1.0)
}

func clamp(value, low, high float64) float64 {
	if math.IsNaN(value) || value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
