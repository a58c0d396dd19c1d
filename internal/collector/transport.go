package collector

import (
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// newHTTPClient builds a client with an optional proxy, shared by every fetcher.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Warnf("ignoring invalid proxy url %q: %v", proxyURL, err)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
