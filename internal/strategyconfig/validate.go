package strategyconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (엔진/스크리너 생성 불가)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 오류 필드명을 YAML 경로로 표시
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks field rules then cross-field rules.
// Returns the first failure as ValidationError.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fromValidator(err)
	}

	// === Technical ===
	t := cfg.Technical
	if t.SMAShort >= t.SMALong {
		return ValidationError{"technical.sma_short", "must be < technical.sma_long"}
	}
	if t.RSIOversold >= t.RSIOverbought {
		return ValidationError{"technical.rsi_oversold", "must be < technical.rsi_overbought"}
	}

	// === Fundamental ===
	if cfg.Fundamental.PointWeights.Sum() <= 0 {
		return ValidationError{"fundamental.point_weights", "must not all be zero"}
	}

	// === Fusion ===
	f := cfg.Fusion
	if f.Weights.Sum() <= 0 {
		return ValidationError{"fusion.weights", "must not all be zero"}
	}
	if f.SellThreshold >= f.BuyThreshold {
		return ValidationError{"fusion.sell_threshold", "must be < fusion.buy_threshold"}
	}

	// === Schedule ===
	if cfg.Schedule.Enabled {
		if _, err := cronParser.Parse(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	f := cfg.Fusion
	if f.BuyThreshold-f.SellThreshold > 1.0 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_HOLD_BAND",
			Message: "buy/sell thresholds leave more than half the range as HOLD",
		})
	}

	nonZero := 0
	for _, w := range []float64{f.Weights.Technical, f.Weights.Sentiment, f.Weights.Fundamental} {
		if w > 0 {
			nonZero++
		}
	}
	if nonZero == 1 {
		warnings = append(warnings, Warning{
			Code:    "SINGLE_SIGNAL",
			Message: "only one signal carries weight; confidence will be capped at 1/3",
		})
	}

	if cfg.Screener.PerRequestTimeout.Seconds() < 2 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_TIMEOUT",
			Message: "per-request timeout under 2s: expect timeouts on slow sources",
		})
	}

	if cfg.Sentiment.MaxHeadlines < 5 {
		warnings = append(warnings, Warning{
			Code:    "FEW_HEADLINES",
			Message: "sentiment mean over fewer than 5 headlines is noisy",
		})
	}

	return warnings
}

// fromValidator converts the first validator failure into a ValidationError
func fromValidator(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ValidationError{"config", err.Error()}
	}

	fe := fieldErrs[0]
	// "Config.technical.sma_short" → "technical.sma_short"
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return ValidationError{field, ruleMessage(fe)}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be < %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}
