// Package content stores and retrieves the off-chain payloads that records
// point at. The ledger only holds the content pointer; the payload itself
// lives in IPFS.
package content

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	files "github.com/ipfs/boxo/files"
	"github.com/ipfs/boxo/path"
	"github.com/ipfs/go-cid"
	ipfsApi "github.com/ipfs/kubo/client/rpc"
	"github.com/ipfs/kubo/core/coreiface/options"
	log "github.com/sirupsen/logrus"
)

// Store pins payloads to an IPFS node and resolves content pointers back to
// their bytes.
type Store struct {
	api *ipfsApi.HttpApi
}

// NewStore connects to the IPFS node's HTTP API. Accepts a plain host:port,
// a full URL, or a multiaddr.
func NewStore(apiURL string) (*Store, error) {
	if apiURL == "" {
		apiURL = "127.0.0.1:5001"
	}

	if strings.HasPrefix(apiURL, "/ip4/") || strings.HasPrefix(apiURL, "/dns/") {
		// Convert multiaddr: /ip4/172.29.0.2/tcp/5001 -> http://172.29.0.2:5001
		parts := strings.Split(apiURL, "/")
		if len(parts) >= 5 {
			host := parts[2]
			port := parts[4]
			apiURL = fmt.Sprintf("http://%s:%s", host, port)
		}
	} else if !strings.HasPrefix(apiURL, "http://") && !strings.HasPrefix(apiURL, "https://") {
		apiURL = "http://" + apiURL
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:       10,
			IdleConnTimeout:    90 * time.Second,
			DisableCompression: true,
		},
	}

	api, err := ipfsApi.NewURLApiWithClient(apiURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPFS client: %w", err)
	}

	return &Store{api: api}, nil
}

// Pin stores a payload and returns its content pointer (a CIDv1 path). The
// content is pinned so the node keeps it across garbage collection.
func (s *Store) Pin(ctx context.Context, payload []byte) (string, error) {
	reader := bytes.NewReader(payload)

	p, err := s.api.Unixfs().Add(ctx, files.NewReaderFile(reader), func(settings *options.UnixfsAddSettings) error {
		settings.CidVersion = 1
		settings.Chunker = "size-262144"
		settings.Pin = true
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to add to IPFS: %w", err)
	}

	pointer := p.String()
	log.WithField("pointer", pointer).Info("Payload pinned")

	return pointer, nil
}

// Fetch resolves a content pointer to the payload bytes.
func (s *Store) Fetch(ctx context.Context, pointer string) ([]byte, error) {
	pointer = strings.TrimPrefix(pointer, "/ipfs/")
	parsedCID, err := cid.Parse(pointer)
	if err != nil {
		return nil, fmt.Errorf("invalid content pointer %s: %w", pointer, err)
	}

	node, err := s.api.Unixfs().Get(ctx, path.FromCid(parsedCID))
	if err != nil {
		return nil, fmt.Errorf("failed to get from IPFS: %w", err)
	}

	file := files.ToFile(node)
	if file == nil {
		return nil, fmt.Errorf("content pointer %s does not resolve to a file", pointer)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	return buf.Bytes(), nil
}

// Available checks whether the IPFS node is reachable.
func (s *Store) Available(ctx context.Context) bool {
	_, err := s.api.Key().Self(ctx)
	return err == nil
}
