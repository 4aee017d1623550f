// Package importer implements the one-shot symbol import job: it downloads
// the vendor's by-exchange archive, unpacks it, and loads the target
// exchanges' symbols into the partitioned corpus one shard per
// (exchange, securityType) pair.
package importer

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourorg/symbol-directory/internal/config"
	"github.com/yourorg/symbol-directory/internal/model"
	"github.com/yourorg/symbol-directory/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// archiveSubdir is where the vendor archive nests its per-exchange CSVs
const archiveSubdir = "dtn_symbols/by_exchange"

// Importer runs the symbol import job
type Importer struct {
	symbolRepo *repository.SymbolRepository
	cfg        config.ImporterConfig
	client     *http.Client
	logger     *zap.Logger
}

// NewImporter creates a new importer
func NewImporter(symbolRepo *repository.SymbolRepository, cfg config.ImporterConfig, logger *zap.Logger) *Importer {
	return &Importer{
		symbolRepo: symbolRepo,
		cfg:        cfg,
		client:     http.DefaultClient,
		logger:     logger,
	}
}

// Run downloads, extracts and imports the vendor archive. Downloaded and
// extracted files are cleaned up regardless of outcome.
func (i *Importer) Run(ctx context.Context) error {
	workDir, err := os.MkdirTemp("", "symbol-import-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			i.logger.Warn("failed to clean up work directory", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	zipPath := filepath.Join(workDir, "by_exchange.zip")
	if err := i.download(ctx, i.cfg.ArchiveURL, zipPath); err != nil {
		return err
	}

	extractDir := filepath.Join(workDir, "extracted")
	if err := extractZip(zipPath, extractDir); err != nil {
		return err
	}

	total, err := i.importExtracted(ctx, extractDir)
	if err != nil {
		return err
	}

	i.logger.Info("symbol import finished", zap.Int("total_symbols", total))
	return nil
}

// download fetches the archive with exponential-backoff retries
func (i *Importer) download(ctx context.Context, url, dest string) error {
	i.logger.Info("downloading symbol archive", zap.String("url", url))

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := i.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}

		f, err := os.Create(dest)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer f.Close()

		if _, err := io.Copy(f, resp.Body); err != nil {
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}

	i.logger.Info("download complete", zap.String("dest", dest))
	return nil
}

// extractZip unpacks an archive into dest, rejecting entries that would
// escape it
func extractZip(zipPath, dest string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(dest, file.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction directory", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return err
		}

		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return err
		}

		_, err = io.Copy(dst, src)
		dst.Close()
		src.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// importExtracted walks the per-exchange CSV directories for the configured
// target exchanges and stores one shard per (exchange, securityType) group.
// Returns the number of symbols stored.
func (i *Importer) importExtracted(ctx context.Context, extractDir string) (int, error) {
	basePath := filepath.Join(extractDir, filepath.FromSlash(archiveSubdir))
	total := 0

	for _, exchange := range i.cfg.TargetExchanges {
		exchangePath := filepath.Join(basePath, exchange)
		info, err := os.Stat(exchangePath)
		if err != nil || !info.IsDir() {
			i.logger.Warn("exchange directory not found", zap.String("exchange", exchange))
			continue
		}

		csvFiles, err := filepath.Glob(filepath.Join(exchangePath, "*.csv"))
		if err != nil {
			return total, err
		}
		if len(csvFiles) == 0 {
			i.logger.Warn("no CSV files for exchange", zap.String("exchange", exchange))
			continue
		}

		i.logger.Info("processing exchange", zap.String("exchange", exchange), zap.Int("files", len(csvFiles)))

		for _, csvFile := range csvFiles {
			records, err := readSymbolCSV(csvFile)
			if err != nil {
				i.logger.Error("failed to process CSV file", zap.String("file", csvFile), zap.Error(err))
				continue
			}

			// Group by security type, keeping only rows that belong to
			// this exchange so every shard honors its partition key.
			groups := make(map[string][]model.SymbolRecord)
			order := make([]string, 0)
			for _, record := range records {
				if record.Exchange != exchange {
					continue
				}
				if _, seen := groups[record.SecurityType]; !seen {
					order = append(order, record.SecurityType)
				}
				groups[record.SecurityType] = append(groups[record.SecurityType], record)
			}

			for _, securityType := range order {
				group := groups[securityType]
				if err := i.symbolRepo.StoreShard(ctx, exchange, securityType, group); err != nil {
					return total, err
				}
				total += len(group)
			}
		}
	}

	return total, nil
}

// readSymbolCSV parses one vendor CSV. The header must name the symbol,
// exchange and securityType columns; files missing any of them are rejected.
func readSymbolCSV(path string) ([]model.SymbolRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.TrimSpace(name)] = idx
	}
	for _, required := range []string{"symbol", "exchange", "securityType"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var records []model.SymbolRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		records = append(records, model.SymbolRecord{
			Symbol:       field(row, "symbol"),
			Exchange:     field(row, "exchange"),
			Description:  field(row, "description"),
			SecurityType: field(row, "securityType"),
		})
	}
	return records, nil
}
