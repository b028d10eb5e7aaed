package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"order-lookup/internal/core/logger"
	"order-lookup/internal/core/proxy"

	"go.uber.org/zap"
)

// LoggingRoundTripper captures request details for debugging.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger.Get().Debug("HTTP Request Started",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		logger.Get().Error("HTTP Request Failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Get().Debug("HTTP Request Completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with logging middleware and, when
// configured, an egress proxy for outbound requests.
func NewClient(timeout time.Duration, egress proxy.Settings) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if egress.HasProxy() {
		if proxyURL, err := url.Parse(egress.FullURL()); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.Get().Info("Outbound requests routed through egress proxy",
				zap.String("proxy", egress.HostPort()),
			)
		} else {
			logger.Get().Warn("Invalid egress proxy URL, continuing without proxy", zap.Error(err))
		}
	}

	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: transport,
		},
		Timeout: timeout,
	}
}
