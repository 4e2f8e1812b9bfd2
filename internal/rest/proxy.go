package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

// newHTTPClient builds an *http.Client whose transport dials through one of
// three strategies, matching endcord's get_connection: a direct TLS dial, an
// HTTP CONNECT tunnel through an http:// proxy, or a SOCKS5 proxy wrapping
// the final connection in TLS itself (SOCKS5 has no native TLS framing).
func newHTTPClient(proxyURL string) (*http.Client, error) {
	if proxyURL == "" {
		return &http.Client{Transport: &http.Transport{}}, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("rest: invalid proxy url: %w", err)
	}

	switch u.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("rest: socks5 dialer: %w", err)
		}
		transport := &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				conn, err := dialer.Dial(network, addr)
				if err != nil {
					return nil, err
				}
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					host = addr
				}
				tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
				if err := tlsConn.HandshakeContext(ctx); err != nil {
					conn.Close()
					return nil, err
				}
				return tlsConn, nil
			},
		}
		return &http.Client{Transport: transport}, nil

	case "http", "https":
		transport := &http.Transport{Proxy: http.ProxyURL(u)}
		return &http.Client{Transport: transport}, nil

	default:
		return nil, fmt.Errorf("rest: unsupported proxy scheme %q", u.Scheme)
	}
}
