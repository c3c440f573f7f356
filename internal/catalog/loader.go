// Package catalog loads EU allergen reference data from CSV sources.
//
// A source is a local path or an http(s) URL. Each source holds lines of
// eu_code,language_code,name with an optional header row, and may be gzip
// compressed. Sources are fetched concurrently; when several sources name the
// same code and language, the later source in the list wins.
package catalog

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

//go:embed eu_allergens.csv
var defaultCatalog []byte

// Upserter stores catalog entries
type Upserter interface {
	Upsert(ctx context.Context, entries []models.AllergenTranslation) error
}

// Stats summarises one import
type Stats struct {
	Sources int `json:"sources"`
	Entries int `json:"entries"`
	Codes   int `json:"codes"`
}

// Loader fetches and parses catalog sources
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader. A nil client gets a one-minute timeout.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &Loader{client: client}
}

// Default returns the built-in catalog of the fourteen EU allergens.
func Default() ([]models.AllergenTranslation, error) {
	return parse(bytes.NewReader(defaultCatalog), "built-in")
}

// Load reads every source concurrently and returns the merged entries in
// source order. Any failing source fails the whole load.
func (l *Loader) Load(ctx context.Context, sources []string) ([]models.AllergenTranslation, error) {
	if len(sources) == 0 {
		return nil, errors.New("no catalog sources provided")
	}

	results := make([][]models.AllergenTranslation, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			entries, err := l.loadSource(gctx, src)
			if err != nil {
				return fmt.Errorf("load catalog source %d (%s): %w", i+1, src, err)
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return merge(results...), nil
}

// Import loads sources, or the built-in catalog when sources is empty, and
// upserts the result.
func Import(ctx context.Context, l *Loader, store Upserter, sources []string) (Stats, error) {
	var (
		entries []models.AllergenTranslation
		err     error
	)
	if len(sources) == 0 {
		entries, err = Default()
	} else {
		entries, err = l.Load(ctx, sources)
	}
	if err != nil {
		return Stats{}, err
	}

	if err := store.Upsert(ctx, entries); err != nil {
		return Stats{}, fmt.Errorf("store catalog: %w", err)
	}

	codes := make(map[string]struct{})
	for _, e := range entries {
		codes[e.EUCode] = struct{}{}
	}
	return Stats{Sources: max(len(sources), 1), Entries: len(entries), Codes: len(codes)}, nil
}

func (l *Loader) loadSource(ctx context.Context, src string) ([]models.AllergenTranslation, error) {
	var rc io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		body, err := l.fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		rc = body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		rc = f
	}
	defer rc.Close()

	r, err := decompress(rc)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return parse(r, src)
}

func (l *Loader) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// decompress transparently unwraps gzip input, detected by its magic bytes.
// Closing the result does not close r.
func decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	}
	return io.NopCloser(br), nil
}

func parse(r io.Reader, src string) ([]models.AllergenTranslation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var entries []models.AllergenTranslation
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src, err)
		}

		code := strings.ToUpper(strings.TrimSpace(rec[0]))
		lang := strings.ToLower(strings.TrimSpace(rec[1]))
		name := strings.TrimSpace(rec[2])
		if line == 1 && code == "EU_CODE" {
			continue
		}
		if code == "" || lang == "" || name == "" {
			return nil, fmt.Errorf("parse %s: line %d: empty field", src, line)
		}
		entries = append(entries, models.AllergenTranslation{EUCode: code, Language: lang, Name: name})
	}
	return entries, nil
}

// merge concatenates per-source entries keeping the first position of each
// (code, language) pair and the last name given for it.
func merge(sets ...[]models.AllergenTranslation) []models.AllergenTranslation {
	type key struct{ code, lang string }
	index := make(map[key]int)
	var out []models.AllergenTranslation
	for _, set := range sets {
		for _, e := range set {
			k := key{e.EUCode, e.Language}
			if i, ok := index[k]; ok {
				out[i].Name = e.Name
				continue
			}
			index[k] = len(out)
			out = append(out, e)
		}
	}
	return out
}
