package main

import (
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/circuitbreaker"
	"github.com/yourorg/datalens/internal/config"
	"github.com/yourorg/datalens/internal/connector"
	"golang.org/x/time/rate"
)

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	// Set log formatter based on environment
	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// Set log level based on environment
	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}

// newMetricsRegistry creates the registry served on /metrics with runtime collectors.
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// buildConnectors creates every data source connector, each behind its own
// circuit breaker, and registers them in catalog order. reg may be nil.
func buildConnectors(cfg config.Config, reg *prometheus.Registry) (*connector.Registry, error) {
	var (
		metrics *connector.Metrics
		trips   *prometheus.CounterVec
	)
	if reg != nil {
		metrics = connector.NewMetrics(reg)
		trips = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datalens_circuit_breaker_trips_total",
				Help: "Total number of times a connector circuit breaker opened",
			},
			[]string{"connector"},
		)
		reg.MustRegister(trips)
	}

	client := connector.NewHTTPClient()
	p := cfg.Providers

	options := func(id, baseURL, apiKey string) connector.Options {
		breaker := circuitbreaker.New(id, circuitbreaker.Thresholds{
			MaxConsecutiveFailures: cfg.BreakerFailures,
		}).WithResetDelay(cfg.BreakerReset).WithTripCallback(func(name, reason string) {
			logrus.WithFields(logrus.Fields{"connector": name, "reason": reason}).Warn("Circuit breaker tripped")
			if trips != nil {
				trips.WithLabelValues(name).Inc()
			}
		})
		return connector.Options{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			HTTPClient: client,
			Breaker:    breaker,
		}
	}

	alphaVantage := options("alphavantage", p.AlphaVantageURL, p.AlphaVantageAPIKey)
	alphaVantage.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.AlphaVantageRPM)), 1)

	noaa := options("noaa", p.NOAAURL, "")
	noaa.UserAgent = p.NOAAUserAgent

	conns := []connector.Connector{
		connector.NewAlphaVantage(alphaVantage),
		connector.NewCoinGecko(options("coingecko", p.CoinGeckoURL, "")),
		connector.NewFRED(options("fred", p.FREDURL, p.FREDAPIKey)),
		connector.NewWorldBank(options("worldbank", p.WorldBankURL, "")),
		connector.NewNOAA(noaa),
		connector.NewUNData(options("undata", p.UNDataURL, ""), p.UNDataMaxPages),
	}
	for i, c := range conns {
		conns[i] = connector.Instrument(c, metrics, cfg.FetchTimeout)
	}

	if p.FREDAPIKey == "" {
		logrus.Warn("FRED_API_KEY not set, FRED widgets will show synthetic data")
	}
	return connector.NewRegistry(conns...)
}
