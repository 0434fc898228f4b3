// Package archive keeps raw model responses that failed to parse so operators can inspect prompts
package archive

import (
	"context"
	"path"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Entry is one archived response
type Entry struct {
	Label     string
	Reason    string
	Response  string
	CreatedAt time.Time
}

// Service stores archived responses
type Service interface {
	Put(ctx context.Context, entry Entry) error
}

// Noop discards every entry
type Noop struct{}

func (Noop) Put(context.Context, Entry) error { return nil }

// Memory keeps entries in process memory
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Put(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a snapshot of the stored entries
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// GCS writes each entry as a text object under prefix
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a Cloud Storage backed archive using application default credentials
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectName returns the object path of an entry: <prefix>/<yyyy>/<mm>/<dd>/<label>-<unixnano>.txt
func ObjectName(prefix string, entry Entry) string {
	ts := entry.CreatedAt.UTC()
	return path.Join(prefix, ts.Format("2006/01/02"), entry.Label+"-"+ts.Format("150405.000000000")+".txt")
}

func (g *GCS) Put(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	name := ObjectName(g.prefix, entry)

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	w.Metadata = map[string]string{
		"label":  entry.Label,
		"reason": entry.Reason,
	}

	if _, err := w.Write([]byte(entry.Response)); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	return nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}
