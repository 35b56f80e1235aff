package local

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/lovedemo/seedManage/internal/normalize"
)

//go:embed data/sample.json
var embeddedSample []byte

// Loader produces the raw records backing a dataset.
type Loader interface {
	Load(ctx context.Context) ([]normalize.Record, error)
}

// EmbeddedLoader reads the sample dataset compiled into the binary.
type EmbeddedLoader struct{}

func (EmbeddedLoader) Load(context.Context) ([]normalize.Record, error) {
	return decodeRecords(embeddedSample)
}

// FileLoader reads a JSON array of records from Path. When the file does not
// exist and Fallback is set, Fallback is used instead.
type FileLoader struct {
	Path     string
	Fallback Loader
}

func (l FileLoader) Load(ctx context.Context) ([]normalize.Record, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		if l.Fallback != nil {
			return l.Fallback.Load(ctx)
		}
		return nil, errors.New("sample data path is empty")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && l.Fallback != nil {
			return l.Fallback.Load(ctx)
		}
		return nil, fmt.Errorf("read sample data: %w", err)
	}
	return decodeRecords(content)
}

func decodeRecords(content []byte) ([]normalize.Record, error) {
	var records []normalize.Record
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("decode sample data: %w", err)
	}
	return records, nil
}
