package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"signalengine/src/model"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var ErrUnsupportedTimeframe = errors.New("unsupported timeframe")

// knownQuotes are tried, longest first, when a symbol carries no separator.
var knownQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD", "BTC", "ETH", "BNB"}

// KlineProvider reads closed and in-progress bars from Binance spot.
type KlineProvider struct {
	exchange goex.API
	breaker  *gobreaker.CircuitBreaker
	quote    string
	log      *logger.Entry
}

func NewKlineProvider(cfg Config, log *logger.Entry) *KlineProvider {
	httpClient := &http.Client{Timeout: cfg.KlineTimeout}
	endpoint := cfg.BinanceEndpoint
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	exchange := binance.NewWithConfig(&goex.APIConfig{
		HttpClient: httpClient,
		Endpoint:   endpoint,
	})
	return newKlineProvider(exchange, cfg.KlineQuote, log)
}

func newKlineProvider(exchange goex.API, quote string, log *logger.Entry) *KlineProvider {
	if quote == "" {
		quote = "USDT"
	}
	p := &KlineProvider{
		exchange: exchange,
		quote:    strings.ToUpper(quote),
		log:      log.WithField("component", "kline_provider"),
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "binance-klines",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Kline breaker state changed")
		},
	})
	return p
}

// Candles returns up to limit bars for symbol, oldest first.
func (p *KlineProvider) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	return p.fetch(ctx, symbol, tf, limit)
}

// Range returns up to limit bars opened between from and to, oldest first.
func (p *KlineProvider) Range(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time, limit int) ([]model.Candle, error) {
	const millis = 1000
	return p.fetch(ctx, symbol, tf, limit, goex.OptionalParameter{}.
		Optional("startTime", from.Unix()*millis).
		Optional("endTime", to.Unix()*millis))
}

func (p *KlineProvider) fetch(ctx context.Context, symbol string, tf model.Timeframe, limit int, opts ...goex.OptionalParameter) ([]model.Candle, error) {
	period, err := klinePeriod(tf)
	if err != nil {
		return nil, err
	}
	pair := p.pair(symbol)

	type result struct {
		klines []goex.Kline
		err    error
	}
	done := make(chan result, 1)
	go func() {
		out, err := p.breaker.Execute(func() (interface{}, error) {
			return p.exchange.GetKlineRecords(pair, period, limit, opts...)
		})
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{klines: out.([]goex.Kline)}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("klines %s %s: %w", pair.String(), tf, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("klines %s %s: %w", pair.String(), tf, r.err)
		}
		return toCandles(r.klines), nil
	}
}

func (p *KlineProvider) pair(symbol string) goex.CurrencyPair {
	base, quote := SplitSymbol(symbol, p.quote)
	return goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: quote})
}

// SplitSymbol separates base and quote. "BTC/USDT", "btc_usdt" and "BTCUSDT"
// all give BTC, USDT; a bare base gets defaultQuote.
func SplitSymbol(symbol, defaultQuote string) (string, string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"/", "_", "-"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i], s[i+1:]
		}
	}
	for _, q := range knownQuotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, strings.ToUpper(defaultQuote)
}

func klinePeriod(tf model.Timeframe) (goex.KlinePeriod, error) {
	switch tf {
	case model.TimeframeM5:
		return goex.KLINE_PERIOD_5MIN, nil
	case model.TimeframeM15:
		return goex.KLINE_PERIOD_15MIN, nil
	case model.TimeframeH1:
		return goex.KLINE_PERIOD_1H, nil
	case model.TimeframeD1:
		return goex.KLINE_PERIOD_1DAY, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedTimeframe, tf)
	}
}

func toCandles(klines []goex.Kline) []model.Candle {
	out := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		out = append(out, model.Candle{
			Datetime: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
		})
	}
	return out
}
