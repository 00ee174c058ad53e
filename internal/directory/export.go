package directory

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/provider-directory/internal/entry"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Backup is the document written by Export.
type Backup struct {
	About      string         `json:"about" yaml:"about"`
	ExportedAt time.Time      `json:"exportedAt" yaml:"exportedAt"`
	Entries    []*entry.Entry `json:"entries" yaml:"entries"`
}

// Export writes every entry to w in format when the collection changed
// since the last export, or unconditionally with force. It reports whether
// a backup was written. A missing collection meta record fails the export
// with ErrExportFailed.
func (s *Service) Export(ctx context.Context, w io.Writer, format string, force bool) (bool, error) {
	if format != FormatJSON && format != FormatYAML {
		return false, eris.Wrapf(ErrExportFailed, "unsupported format %q", format)
	}

	meta, err := s.backend.GetMeta(ctx)
	if err != nil {
		return false, eris.Wrapf(ErrExportFailed, "read collection meta: %v", err)
	}
	if !force && !meta.ChangedSinceExport() {
		zap.L().Info("directory: export skipped, no changes")
		return false, nil
	}

	entries, err := s.backend.AllEntries(ctx)
	if err != nil {
		return false, eris.Wrapf(ErrExportFailed, "list entries: %v", err)
	}
	if entries == nil {
		entries = []*entry.Entry{}
	}
	for _, e := range entries {
		e.Distance = nil
	}

	now := s.now()
	doc := Backup{About: "entries", ExportedAt: now, Entries: entries}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return false, eris.Wrapf(ErrExportFailed, "encode yaml: %v", err)
		}
		if err := enc.Close(); err != nil {
			return false, eris.Wrapf(ErrExportFailed, "encode yaml: %v", err)
		}
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return false, eris.Wrapf(ErrExportFailed, "encode json: %v", err)
		}
	}

	if err := s.backend.TouchExport(ctx, now); err != nil {
		return true, eris.Wrapf(ErrExportFailed, "stamp export: %v", err)
	}

	zap.L().Info("directory: export written", zap.String("format", format), zap.Int("entries", len(entries)))
	return true, nil
}
