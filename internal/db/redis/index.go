package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/vidrank/internal/db"
)

// CreateIndex runs FT.CREATE for the definition. An existing index is db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}

	if err := s.do(ctx, s.b().Arbitrary("FT.CREATE").Args(args...).Build()).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return wrap(db.OpCreateIndex, err)
	}
	return nil
}

// IndexExists probes the index via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	if err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(name).Build()).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, wrap(db.OpIndexInfo, err)
	}
	return true, nil
}

// createArgs renders `name ON HASH PREFIX n p... SCHEMA field...`.
func createArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "HASH"}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		f := &idx.Fields[i]
		args = append(args, f.Name)
		if f.Alias != "" {
			args = append(args, "AS", f.Alias)
		}
		typed, err := fieldTypeArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, typed...)
	}
	return args, nil
}

func fieldTypeArgs(f *db.IndexField) ([]string, error) {
	switch f.Type {
	case db.IndexFieldNumeric:
		return []string{"NUMERIC"}, nil
	case db.IndexFieldText:
		return []string{"TEXT"}, nil
	case db.IndexFieldTag:
		if f.TagSeparator == "" {
			return []string{"TAG"}, nil
		}
		return []string{"TAG", "SEPARATOR", f.TagSeparator}, nil
	case db.IndexFieldVector:
		return hnswArgs(f), nil
	default:
		return nil, fmt.Errorf("field %s: unknown field type %d", f.Name, f.Type)
	}
}

// hnswArgs renders `VECTOR HNSW <n> TYPE FLOAT32 DIM d DISTANCE_METRIC m [M x] [EF_CONSTRUCTION y]`.
func hnswArgs(f *db.IndexField) []string {
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if f.VectorM > 0 {
		attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
	}
	if f.VectorEFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
	}
	return append([]string{"VECTOR", "HNSW", strconv.Itoa(len(attrs))}, attrs...)
}
