package fetcher

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bptclass/bptclass/pkg/types"
)

// Sentinel errors returned by CSVDecoder.
var (
	ErrEmptyResponse = errors.New("empty response body")
	ErrMissingColumn = errors.New("missing required column")
)

// Decoder turns a response body into a Table. It is the only part of the
// fetcher that knows the wire shape, so it can be tested on fixed payloads.
type Decoder interface {
	Decode(r io.Reader) (*types.Table, error)
}

// CSVDecoder parses CasJobs CSV output.
//
// CasJobs writes the header on line 1 and the SQL data types on line 2;
// SkipTypeRow discards that second line before the rows are read.
type CSVDecoder struct {
	SkipTypeRow bool
}

// Decode reads the header, optionally drops the type row and parses every
// remaining record. Empty cells become NaN. Columns other than specobjid and
// the eight flux columns are ignored.
func (d CSVDecoder) Decode(r io.Reader) (*types.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyResponse
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	copy(columns, header)

	idx, err := columnIndex(columns)
	if err != nil {
		return nil, err
	}

	if d.SkipTypeRow {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return &types.Table{Columns: columns}, nil
			}
			return nil, fmt.Errorf("read type row: %w", err)
		}
	}

	table := &types.Table{Columns: columns}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table.Rows)+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) > len(columns) {
			return nil, fmt.Errorf("row %d: got %d fields, header has %d",
				len(table.Rows)+1, len(rec), len(columns))
		}
		for len(rec) < len(columns) {
			rec = append(rec, "")
		}
		g, err := idx.galaxy(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, g)
	}
	return table, nil
}

// fieldIndex maps the columns we use to their positions in a record.
type fieldIndex struct {
	id   int // -1 when the query did not select specobjid
	flux map[string]int
}

func columnIndex(header []string) (*fieldIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := &fieldIndex{id: -1, flux: make(map[string]int, len(types.FluxColumns))}
	if i, ok := pos[types.ColSpecObjID]; ok {
		idx.id = i
	}
	var missing []string
	for _, col := range types.FluxColumns {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx.flux[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (idx *fieldIndex) galaxy(rec []string) (types.Galaxy, error) {
	g := types.Galaxy{Class: types.ClassAmbiguous}
	if idx.id >= 0 {
		g.SpecObjID = strings.TrimSpace(rec[idx.id])
	}

	targets := map[string]*float64{
		types.ColHAlphaFlux:    &g.HAlphaFlux,
		types.ColHBetaFlux:     &g.HBetaFlux,
		types.ColOIII5007Flux:  &g.OIII5007Flux,
		types.ColNII6584Flux:   &g.NII6584Flux,
		types.ColHAlphaFluxErr: &g.HAlphaFluxErr,
		types.ColHBetaFluxErr:  &g.HBetaFluxErr,
		types.ColOIII5007Err:   &g.OIII5007FluxErr,
		types.ColNII6584Err:    &g.NII6584FluxErr,
	}
	for col, dst := range targets {
		v, err := parseFloat(rec[idx.flux[col]])
		if err != nil {
			return g, fmt.Errorf("column %s: %w", col, err)
		}
		*dst = v
	}
	g.LogNIIHa, g.LogOIIIHb = math.NaN(), math.NaN()
	return g, nil
}

// parseFloat accepts the numeric spellings CasJobs emits, including the
// missing-value markers.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "na":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
