// Package feedback records user ratings of recommended plants in a CSV file.
package feedback

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/plant"
)

// DateLayout is the layout of the date column, e.g. "2024-05-01 14:03:59".
const DateLayout = "2006-01-02 15:04:05"

// Note bounds.
const (
	MinNote = 1
	MaxNote = 5
)

// LatestCount is the number of most recent records reported by Stats.
const LatestCount = 3

// Header is the column order of the feedback file.
var Header = []string{"date", "plante", "note", "commentaire"}

// ErrEmptyPlant is returned when feedback names no plant. Nothing is written.
var ErrEmptyPlant = prErrors.New("veuillez spécifier une plante")

// Record is one feedback entry.
type Record struct {
	Date        time.Time `json:"date"`
	Plante      string    `json:"plante"`
	Note        int       `json:"note"`
	Commentaire string    `json:"commentaire"`
}

func (r Record) row() []string {
	return []string{r.Date.Format(DateLayout), r.Plante, strconv.Itoa(r.Note), r.Commentaire}
}

// Stats summarises the feedback file.
type Stats struct {
	Count    int      `json:"count"`
	MeanNote float64  `json:"mean_note"`
	Latest   []Record `json:"latest"`
}

// Store appends feedback to a CSV file. Appends are serialised so concurrent
// callers never interleave rows.
type Store struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger replaces the default component logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a store writing to path. The file is created on first append.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("feedback")
	}
	return s
}

// Path returns the feedback file path.
func (s *Store) Path() string { return s.path }

// Append validates and writes one feedback row, stamped with the current
// local time. The header is written when the file is new or empty.
func (s *Store) Append(plante string, note int, commentaire string) (Record, error) {
	plante = plant.NormalizeText(plante)
	if plante == "" {
		s.logger.Warn("Feedback without plant name ignored")
		return Record{}, ErrEmptyPlant
	}
	if note < MinNote || note > MaxNote {
		return Record{}, prErrors.NewValidationError("note", fmt.Sprintf("must be between %d and %d", MinNote, MaxNote), note)
	}

	rec := Record{
		Date:        s.now().Truncate(time.Second),
		Plante:      plante,
		Note:        note,
		Commentaire: commentaire,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Record{}, prErrors.Wrapf(err, "create %s", filepath.Dir(s.path))
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, prErrors.Wrapf(err, "open %s", s.path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Record{}, prErrors.Wrapf(err, "stat %s", s.path)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return Record{}, prErrors.Wrap(err, "write header")
		}
	}
	if err := w.Write(rec.row()); err != nil {
		return Record{}, prErrors.Wrap(err, "write feedback")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Record{}, prErrors.Wrapf(err, "write %s", s.path)
	}

	s.logger.Info("Feedback recorded", "plante", rec.Plante, "note", rec.Note)
	return rec, nil
}

// ReadAll returns every record in file order. A missing file yields no records.
func (s *Store) ReadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, prErrors.Wrapf(err, "open %s", s.path)
	}
	defer file.Close()

	records, err := decode(file)
	if err != nil {
		return nil, prErrors.Wrapf(err, "read %s", s.path)
	}
	return records, nil
}

func decode(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.Join(header, ",") != strings.Join(Header, ",") {
		return nil, prErrors.NewValueError("feedback.decode", fmt.Sprintf("unexpected header %v", header))
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		date, err := time.ParseInLocation(DateLayout, row[0], time.Local)
		if err != nil {
			return nil, prErrors.Wrapf(err, "line %d: date", line)
		}
		note, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, prErrors.Wrapf(err, "line %d: note", line)
		}
		records = append(records, Record{Date: date, Plante: row[1], Note: note, Commentaire: row[3]})
	}
}

// Stats returns the record count, the mean note and the last LatestCount
// records. A missing file gives zero stats.
func (s *Store) Stats() (Stats, error) {
	records, err := s.ReadAll()
	if err != nil {
		return Stats{}, err
	}
	if len(records) == 0 {
		return Stats{Latest: []Record{}}, nil
	}

	notes := make([]float64, len(records))
	for i, r := range records {
		notes[i] = float64(r.Note)
	}
	latest := records
	if len(latest) > LatestCount {
		latest = latest[len(latest)-LatestCount:]
	}
	return Stats{
		Count:    len(records),
		MeanNote: stat.Mean(notes, nil),
		Latest:   append([]Record(nil), latest...),
	}, nil
}
