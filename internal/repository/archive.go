package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/snappy"

	"github.com/iliyamo/visitor-tracker/internal/model"
)

const archiveExt = ".json.sz"

// archive writes visitors as snappy-compressed JSON into archiveDir and
// returns the file name.  Callers hold mu.
func (r *VisitorRepo) archive(visitors []model.Visitor) (string, error) {
	if err := os.MkdirAll(r.archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create archive dir: %v", ErrStoreWrite, err)
	}
	raw, err := json.Marshal(visitors)
	if err != nil {
		return "", fmt.Errorf("%w: encode archive: %v", ErrStoreWrite, err)
	}
	// the id generator already yields "<millis>-<random>", unique per call
	name := filepath.Join(r.archiveDir, "visitors-"+model.NewVisitorID(r.now())+archiveExt)
	if err := os.WriteFile(name, snappy.Encode(nil, raw), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return name, nil
}

// Archives lists archive files oldest first.
func (r *VisitorRepo) Archives() ([]string, error) {
	if r.archiveDir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(r.archiveDir, "visitors-*"+archiveExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
