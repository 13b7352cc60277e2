package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/matthewgall/epicdeals/internal/compare"
)

var ErrNotFound = errors.New("comparison snapshot not found")

// Snapshot is what gets written for each finished comparison.
type Snapshot struct {
	ID         string              `json:"id"`
	CreatedAt  time.Time           `json:"createdAt"`
	Comparison *compare.Comparison `json:"comparison"`
}

// Recorder writes comparison snapshots to a Storage under a dated key.
type Recorder struct {
	storage Storage
	now     func() time.Time
}

func NewRecorder(storage Storage) *Recorder {
	return &Recorder{storage: storage, now: time.Now}
}

// Key is the storage key of the snapshot with the given id.
func Key(id string) string {
	return path.Join("comparisons", id+".json")
}

func (r *Recorder) Record(ctx context.Context, comparison *compare.Comparison) (string, error) {
	snapshot := Snapshot{
		ID:         uuid.NewString(),
		CreatedAt:  r.now().UTC(),
		Comparison: comparison,
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := r.storage.Save(ctx, Key(snapshot.ID), bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	return snapshot.ID, nil
}

// Load reads a snapshot back. Ids that are not UUIDs are rejected before touching storage.
func (r *Recorder) Load(ctx context.Context, id string) (*Snapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidKey
	}
	body, err := r.storage.Open(ctx, Key(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer body.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}
