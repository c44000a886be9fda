package extractor

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/archsight/diagast/internal/log"
	"github.com/archsight/diagast/pkg/ast"
	"github.com/archsight/diagast/pkg/cache"
	"github.com/archsight/diagast/pkg/rules"
)

// FileResult records the outcome of converting one source file.
type FileResult struct {
	File   string `json:"file"`
	Output string `json:"output,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Results   []FileResult `json:"results"`
	Converted int          `json:"converted"`
	Cached    int          `json:"cached"`
	Declined  int          `json:"declined"`
	Failed    int          `json:"failed"`
}

// Batch converts every supported diagram file under dir, writing
// .ast.json outputs under outDir in the mirrored relative layout.
// Extractor calls are stateless, so each file gets its own worker.
// Failures are isolated per file and reported in the summary, not
// returned as an error. store may be nil to disable caching.
func (r *Registry) Batch(dir, outDir string, workers int, store *cache.Store) (*BatchSummary, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if r.IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(files)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan string)
	results := make(chan FileResult)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- r.convertOne(path, dir, outDir, store)
			}
		}()
	}
	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	summary := &BatchSummary{}
	for res := range results {
		summary.Results = append(summary.Results, res)
		switch res.Status {
		case "converted":
			summary.Converted++
		case "cached":
			summary.Cached++
		case "declined":
			summary.Declined++
		case "error":
			summary.Failed++
		}
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].File < summary.Results[j].File
	})
	return summary, nil
}

func (r *Registry) convertOne(path, dir, outDir string, store *cache.Store) FileResult {
	res := FileResult{File: path}

	fingerprint := rules.Fingerprint(path)
	var (
		a         *ast.AST
		fromCache bool
		err       error
	)
	if store != nil {
		if cached, ok := store.Get(path, fingerprint); ok {
			a, fromCache = cached, true
		}
	}
	if a == nil {
		a, err = r.Convert(path, "", Options{})
		if err != nil {
			log.Default().Warn("conversion failed", "file", path, "error", err)
			res.Status = "error"
			res.Error = err.Error()
			return res
		}
		if a != nil && store != nil {
			store.Put(path, fingerprint, a)
		}
	}
	if a == nil {
		log.Default().Debug("no diagram content", "file", path)
		res.Status = "declined"
		return res
	}

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	out := filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".ast.json")
	if err := ast.Save(a, out); err != nil {
		log.Default().Warn("writing AST failed", "file", path, "error", err)
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	res.Output = out
	if fromCache {
		res.Status = "cached"
	} else {
		res.Status = "converted"
	}
	return res
}
