// Package parser turns bank exports into transactions ready for classification.
package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Parser converts a bank export into transactions.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error)
	Format() string
}

// ForFile picks a parser from the file extension.
func ForFile(path string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewDelimitedParser(','), nil
	case ".tsv", ".txt":
		return NewDelimitedParser('\t'), nil
	case ".ofx", ".qfx":
		return NewOFXParser(), nil
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Base(path))
}

// ParseFile opens path and parses it with the parser matching its extension.
func ParseFile(ctx context.Context, path string) ([]model.Transaction, error) {
	p, err := ForFile(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return p.Parse(ctx, f)
}
