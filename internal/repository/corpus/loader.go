package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
)

// record is the on-disk shape of one catalog listing. Real catalog
// exports are loose: names and descriptions live in separate fields and
// identifiers may be absent.
type record struct {
	ID          string `json:"id"`
	EquipmentID string `json:"equipment_id"`
	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (r record) toDomain(pos int) domain.Document {
	id := r.ID
	if id == "" {
		id = fmt.Sprintf("doc-%d", pos)
	}
	text := strings.TrimSpace(strings.TrimSpace(r.Name) + " " + strings.TrimSpace(r.Description))
	return domain.Document{
		ID:          id,
		EquipmentID: r.EquipmentID,
		GroupID:     r.GroupID,
		Text:        text,
		Category:    r.Category,
	}
}

// Load reads a JSON catalog export and returns validated documents.
// A corpus that yields no valid documents is a startup failure, not
// something to limp along with.
func Load(path string, logger *zap.Logger) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	docs := make([]domain.Document, 0, len(records))
	var skipped int
	for i, r := range records {
		doc := r.toDomain(i)
		if err := doc.Validate(); err != nil {
			skipped++
			logger.Warn("Skipping invalid catalog record",
				zap.Int("position", i),
				zap.String("id", r.ID),
				zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus %s: %w", path, domain.ErrEmptyCorpus)
	}

	logger.Info("Corpus loaded",
		zap.String("path", path),
		zap.Int("documents", len(docs)),
		zap.Int("skipped", skipped))

	return docs, nil
}
