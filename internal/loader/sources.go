package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/dataprocessing"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// maxPayload caps a single remote response
const maxPayload = 32 << 20

// Remote fetches one tab of the configured spreadsheet document
type Remote interface {
	FetchTab(ctx context.Context, tab string) ([]domain.Row, error)
	Name() string
}

// LocalSource reads pre-generated <dir>/<dataset>.json files holding an array
// of row objects
type LocalSource struct {
	dir string
}

// NewLocalSource creates a LocalSource rooted at dir
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

// Fetch loads the entry's persisted file
func (s *LocalSource) Fetch(entry Entry) ([]domain.Row, error) {
	if s.dir == "" || entry.LocalFile == "" {
		return nil, sourceError(entry.Key, domain.TierLocal, KindNotConfigured, fmt.Errorf("no data directory"))
	}

	path := filepath.Join(s.dir, entry.LocalFile)
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sourceError(entry.Key, domain.TierLocal, KindEmpty, fmt.Errorf("%s does not exist", path))
		}
		return nil, sourceError(entry.Key, domain.TierLocal, KindInvalid, err)
	}
	if err := classifyPayload(entry.Key, domain.TierLocal, body, ""); err != nil {
		return nil, err
	}

	var rows []domain.Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, sourceError(entry.Key, domain.TierLocal, KindInvalid, fmt.Errorf("decode %s: %w", path, err))
	}
	return acceptRows(entry.Key, domain.TierLocal, dataprocessing.NormalizeRows(rows))
}

// Save persists rows as the entry's local file
func (s *LocalSource) Save(entry Entry, rows []domain.Row) error {
	if s.dir == "" {
		return fmt.Errorf("no data directory")
	}
	return WriteLocal(s.dir, entry.Key, rows)
}

// WriteLocal persists rows in the LocalSource format
func WriteLocal(dir string, key domain.DatasetKey, rows []domain.Row) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s rows: %w", key, err)
	}
	return os.WriteFile(filepath.Join(dir, string(key)+".json"), data, 0o644)
}

// BundledSource reads the static workbook shipped with the service
type BundledSource struct {
	path   string
	logger *slog.Logger
}

// NewBundledSource creates a BundledSource for the workbook at path
func NewBundledSource(path string, logger *slog.Logger) *BundledSource {
	return &BundledSource{path: path, logger: logger}
}

// Fetch reads the entry's sheet from the workbook
func (s *BundledSource) Fetch(entry Entry) ([]domain.Row, error) {
	if s.path == "" || !entry.Bundled {
		return nil, sourceError(entry.Key, domain.TierBundled, KindNotConfigured, fmt.Errorf("no bundled workbook"))
	}
	if _, err := os.Stat(s.path); err != nil {
		return nil, sourceError(entry.Key, domain.TierBundled, KindNotConfigured, err)
	}

	rows, err := dataprocessing.ReadWorkbook(s.path, entry.SheetName, s.logger)
	if err != nil {
		return nil, sourceError(entry.Key, domain.TierBundled, KindInvalid, err)
	}
	return acceptRows(entry.Key, domain.TierBundled, rows)
}

// ExportSource downloads a tab through the public CSV export endpoint
type ExportSource struct {
	client     *http.Client
	baseURL    string
	documentID string
	maxBytes   int64
}

// NewExportSource creates an ExportSource. A nil client gets one with timeout.
func NewExportSource(client *http.Client, baseURL, documentID string, timeout time.Duration) *ExportSource {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &ExportSource{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		documentID: documentID,
		maxBytes:   maxPayload,
	}
}

// Name identifies the source in logs
func (s *ExportSource) Name() string { return "csv-export" }

// ExportURL returns the CSV export address of tab
func (s *ExportSource) ExportURL(tab string) string {
	q := url.Values{}
	q.Set("format", "csv")
	q.Set("gid", tab)
	return fmt.Sprintf("%s/%s/export?%s", s.baseURL, url.PathEscape(s.documentID), q.Encode())
}

// FetchTab downloads and parses one tab. The dataset key on returned errors is
// left empty for the caller to fill in.
func (s *ExportSource) FetchTab(ctx context.Context, tab string) ([]domain.Row, error) {
	if s.documentID == "" {
		return nil, sourceError("", domain.TierRemote, KindNotConfigured, fmt.Errorf("no document id"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ExportURL(tab), nil)
	if err != nil {
		return nil, sourceError("", domain.TierRemote, KindNotConfigured, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, sourceError("", domain.TierRemote, KindNetwork, err)
	}
	defer resp.Body.Close()

	// one byte past the cap tells a truncated body from one that fits exactly
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, sourceError("", domain.TierRemote, KindNetwork, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > s.maxBytes {
		return nil, sourceError("", domain.TierRemote, KindInvalid, fmt.Errorf("response exceeds %d bytes", s.maxBytes))
	}

	// Private documents redirect to a sign-in page or answer 401/403 with HTML
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, sourceError("", domain.TierRemote, KindNotPublic, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		if looksLikeHTML(body, resp.Header.Get("Content-Type")) && resp.StatusCode != http.StatusNotFound {
			return nil, classifyPayload("", domain.TierRemote, body, resp.Header.Get("Content-Type"))
		}
		return nil, sourceError("", domain.TierRemote, KindNetwork, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	if err := classifyPayload("", domain.TierRemote, body, resp.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	rows, err := dataprocessing.ParseRows(string(body), ',')
	if err != nil {
		return nil, sourceError("", domain.TierRemote, KindInvalid, err)
	}
	return acceptRows("", domain.TierRemote, rows)
}

// SheetsSource reads tab values through the Sheets API. Numeric tab ids are
// mapped to sheet titles with one metadata request.
type SheetsSource struct {
	svc        *sheets.Service
	documentID string

	mu     sync.Mutex
	titles map[int64]string
}

// NewSheetsSource creates a Sheets API client from the sources section
func NewSheetsSource(ctx context.Context, src config.SourcesConfig) (*SheetsSource, error) {
	if src.DocumentID == "" {
		return nil, fmt.Errorf("sheets source: %w", ErrNotConfigured)
	}

	var opts []option.ClientOption
	switch {
	case src.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(src.CredentialsFile), option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	case src.APIKey != "":
		opts = append(opts, option.WithAPIKey(src.APIKey))
	default:
		return nil, fmt.Errorf("sheets source needs an API key or credentials file: %w", ErrNotConfigured)
	}
	if src.SheetsEndpoint != "" {
		opts = append(opts, option.WithEndpoint(src.SheetsEndpoint))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsSource{svc: svc, documentID: src.DocumentID}, nil
}

// Name identifies the source in logs
func (s *SheetsSource) Name() string { return "sheets-api" }

// FetchTab reads every value of one tab
func (s *SheetsSource) FetchTab(ctx context.Context, tab string) ([]domain.Row, error) {
	title, err := s.sheetTitle(ctx, tab)
	if err != nil {
		return nil, err
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.documentID, title).Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(resp.Values) == 0 {
		return nil, sourceError("", domain.TierRemote, KindEmpty, fmt.Errorf("tab %s has no values", tab))
	}
	return acceptRows("", domain.TierRemote, dataprocessing.RecordsToRows(valuesToRecords(resp.Values)))
}

func (s *SheetsSource) sheetTitle(ctx context.Context, tab string) (string, error) {
	id, err := strconv.ParseInt(tab, 10, 64)
	if err != nil {
		return tab, nil // already a title
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.titles == nil {
		doc, err := s.svc.Spreadsheets.Get(s.documentID).Fields("sheets.properties").Context(ctx).Do()
		if err != nil {
			return "", classifyAPIError(err)
		}
		titles := make(map[int64]string, len(doc.Sheets))
		for _, sh := range doc.Sheets {
			if sh.Properties != nil {
				titles[sh.Properties.SheetId] = sh.Properties.Title
			}
		}
		s.titles = titles
	}

	title, ok := s.titles[id]
	if !ok {
		return "", sourceError("", domain.TierRemote, KindEmpty, fmt.Errorf("no tab with id %s", tab))
	}
	return title, nil
}

func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return sourceError("", domain.TierRemote, KindNotPublic, err)
		case http.StatusNotFound, http.StatusBadRequest:
			return sourceError("", domain.TierRemote, KindEmpty, err)
		}
	}
	return sourceError("", domain.TierRemote, KindNetwork, err)
}

func valuesToRecords(values [][]interface{}) [][]string {
	records := make([][]string, len(values))
	for i, row := range values {
		rec := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				rec[j] = fmt.Sprint(cell)
			}
		}
		records[i] = rec
	}
	return records
}

// NewRemote picks the Sheets API when credentials are configured and the
// public CSV export otherwise. It returns nil when no document is configured.
func NewRemote(ctx context.Context, src config.SourcesConfig, client *http.Client) (Remote, error) {
	if src.DocumentID == "" {
		return nil, nil
	}
	if src.UsesSheetsAPI() {
		s, err := NewSheetsSource(ctx, src)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return NewExportSource(client, src.ExportBaseURL, src.DocumentID, src.FetchTimeout), nil
}
