package prober

import (
	"crypto/tls"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/net/http2"
)

func newProbeClient() *http.Client {
	tr := cleanhttp.DefaultPooledTransport()
	// Probes establish reachability, not identity; self-signed nodes still
	// count as up.
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	tr.MaxIdleConnsPerHost = 10
	tr.ForceAttemptHTTP2 = true
	http2.ConfigureTransport(tr)
	return &http.Client{Transport: tr}
}
