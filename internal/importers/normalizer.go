package importers

import (
	"fmt"
	"io"
	"os"

	"github.com/lodeapp/lode/internal/entities"
)

// Normalizer selects the adapter for a source type and opens export
// files as record streams.
type Normalizer struct {
	adapters map[entities.AISource]Adapter
}

// NewNormalizer returns a normalizer with all built-in adapters
// registered.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		adapters: map[entities.AISource]Adapter{
			entities.AISourceOpenAI: &OpenAIAdapter{},
			entities.AISourceClaude: &ClaudeAdapter{},
			entities.AISourceLode:   &LodeAdapter{},
		},
	}
}

// Normalize opens an export via the adapter for sourceType. A stream
// error here (unknown source, unreadable or structurally invalid file)
// means nothing has been committed yet; the caller fails the whole job.
func (n *Normalizer) Normalize(sourceType entities.AISource, r io.Reader) (RecordStream, error) {
	adapter, ok := n.adapters[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, sourceType)
	}
	return adapter.Open(r)
}

// NormalizeFile opens an export file from disk. The returned stream's
// Close releases the file handle.
func (n *Normalizer) NormalizeFile(sourceType entities.AISource, path string) (RecordStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}

	stream, err := n.Normalize(sourceType, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fileStream{RecordStream: stream, f: f}, nil
}

type fileStream struct {
	RecordStream
	f *os.File
}

func (s *fileStream) Close() error {
	if err := s.RecordStream.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
