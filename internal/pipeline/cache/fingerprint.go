package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"spectral-workbench/internal/pipeline/core"

	"gonum.org/v1/gonum/mat"
)

// maxFingerprintValues bounds how many values of each sampled row enter
// the fingerprint.
const maxFingerprintValues = 64

// FingerprintInput is everything that determines a preview response.
// Sampling and Options must marshal deterministically; callers drop
// fields that do not affect the result, such as the use-cache flag.
type FingerprintInput struct {
	X           *mat.Dense
	Y           []float64
	Wavelengths []float64
	Steps       []core.StepDefinition
	Sampling    interface{}
	Options     interface{}
}

type targetSummary struct {
	Len   int     `json:"len"`
	Sum   float64 `json:"sum"`
	First float64 `json:"first"`
	Last  float64 `json:"last"`
}

type canonicalStep struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Name    string                 `json:"name"`
	Enabled bool                   `json:"enabled"`
	Params  map[string]interface{} `json:"params"`
}

type canonicalRequest struct {
	Shape       [2]int          `json:"shape"`
	Rows        [][]float64     `json:"rows"`
	Target      *targetSummary  `json:"target"`
	Wavelengths []float64       `json:"wavelengths"`
	Steps       []canonicalStep `json:"steps"`
	Sampling    interface{}     `json:"sampling"`
	Options     interface{}     `json:"options"`
}

// Fingerprint returns the cache key for a request: the hex SHA-256 of a
// canonical JSON document built from the matrix shape, a handful of rows
// (first, last, middle and quartiles) read at a fixed feature stride, a
// summary of the target, the full wavelength axis, the steps, and the
// sampling and options.
//
// Only part of the matrix is read, so two matrices that agree on every
// sampled value collide. That is acceptable for a short-lived preview
// cache and keeps fingerprinting cheap for large inputs.
func Fingerprint(in FingerprintInput) (string, error) {
	n, c := in.X.Dims()
	doc := canonicalRequest{
		Shape:       [2]int{n, c},
		Rows:        sampleRows(in.X),
		Wavelengths: in.Wavelengths,
		Steps:       make([]canonicalStep, len(in.Steps)),
		Sampling:    in.Sampling,
		Options:     in.Options,
	}

	if len(in.Y) > 0 {
		t := &targetSummary{Len: len(in.Y), First: in.Y[0], Last: in.Y[len(in.Y)-1]}
		for _, v := range in.Y {
			t.Sum += v
		}
		doc.Target = t
	}

	for i, s := range in.Steps {
		params := map[string]interface{}(s.Params)
		if params == nil {
			params = map[string]interface{}{}
		}
		doc.Steps[i] = canonicalStep{
			ID:      s.ID,
			Type:    string(s.Type),
			Name:    s.Name,
			Enabled: s.IsEnabled(),
			Params:  params,
		}
	}

	// encoding/json writes map keys in sorted order at every depth.
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode fingerprint: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func sampleRows(x *mat.Dense) [][]float64 {
	n, c := x.Dims()
	if n == 0 || c == 0 {
		return nil
	}

	idx := uniqueSorted([]int{0, n - 1, n / 2, n / 4, 3 * n / 4})
	stride := (c + maxFingerprintValues - 1) / maxFingerprintValues

	rows := make([][]float64, len(idx))
	for k, i := range idx {
		row := make([]float64, 0, maxFingerprintValues)
		for j := 0; j < c; j += stride {
			row = append(row, x.At(i, j))
		}
		rows[k] = row
	}
	return rows
}

func uniqueSorted(idx []int) []int {
	sort.Ints(idx)
	out := idx[:1]
	for _, v := range idx[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
