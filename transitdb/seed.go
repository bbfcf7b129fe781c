package transitdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/schedule"
)

// SeedFile is the YAML description of hand-maintained lines. Each listed line replaces
// its stop sequence; departures are merged, skipping ones already present.
type SeedFile struct {
	Lines []SeedLine `yaml:"lines" validate:"dive"`
}

type SeedLine struct {
	Number      string              `yaml:"number" validate:"required"`
	Origin      string              `yaml:"origin" validate:"required"`
	Destination string              `yaml:"destination" validate:"required"`
	Polyline    string              `yaml:"polyline"`
	Stops       []SeedStop          `yaml:"stops" validate:"unique=Sequence,dive"`
	Schedules   map[string][]string `yaml:"schedules"`
	Direction   string              `yaml:"direction"`
}

type SeedStop struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name" validate:"required"`
	Lat           float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lng           float64 `yaml:"lng" validate:"gte=-180,lte=180"`
	Neighborhood  string  `yaml:"neighborhood"`
	Sequence      int     `yaml:"sequence" validate:"gte=1"`
	OffsetMinutes *int    `yaml:"offsetMinutes" validate:"omitempty,gte=0"`
}

var seedValidator = validator.New()

// ParseSeed decodes and validates a seed document.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := seedValidator.Struct(seed); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &seed, nil
}

// ImportSeed loads a seed document into the store. Re-importing identical content from
// the same source is a no-op.
func (c *Client) ImportSeed(ctx context.Context, data []byte, source string) error {
	seed, err := ParseSeed(data)
	if err != nil {
		return err
	}

	return c.importIfChanged(ctx, data, "seed:"+source, "seed_importer", func(ctx context.Context, q *Queries) error {
		logger := slog.Default().With(slog.String("component", "seed_importer"))
		for _, sl := range seed.Lines {
			inserted, err := importSeedLine(ctx, q, sl)
			if err != nil {
				return fmt.Errorf("line %s: %w", sl.Number, err)
			}
			logging.LogOperation(logger, "seed_line_imported",
				slog.String("line", sl.Number),
				slog.Int("stops", len(sl.Stops)),
				slog.Int("departures_added", inserted))
		}
		return nil
	})
}

func importSeedLine(ctx context.Context, q *Queries, sl SeedLine) (int, error) {
	line, err := q.UpsertLine(ctx, CreateLineParams{
		Number:      sl.Number,
		Origin:      sl.Origin,
		Destination: sl.Destination,
		Polyline:    toNullString(sl.Polyline),
	})
	if err != nil {
		return 0, fmt.Errorf("unable to upsert line: %w", err)
	}

	if err := q.DeleteStopOnRoutesForLine(ctx, line.ID); err != nil {
		return 0, fmt.Errorf("unable to clear stop sequence: %w", err)
	}

	for _, ss := range sl.Stops {
		id := ss.ID
		if id == "" {
			id = StopIDFor(ss.Lat, ss.Lng)
		}
		if _, err := q.UpsertStop(ctx, UpsertStopParams{
			ID:           id,
			Name:         ss.Name,
			Lat:          ss.Lat,
			Lon:          ss.Lng,
			Neighborhood: toNullString(ss.Neighborhood),
		}); err != nil {
			return 0, fmt.Errorf("unable to upsert stop %s: %w", id, err)
		}
		if err := q.CreateStopOnRoute(ctx, CreateStopOnRouteParams{
			LineID:        line.ID,
			StopID:        id,
			Sequence:      int64(ss.Sequence),
			OffsetMinutes: toNullInt64Ptr(ss.OffsetMinutes),
		}); err != nil {
			return 0, fmt.Errorf("unable to add stop %s at sequence %d: %w", id, ss.Sequence, err)
		}
	}

	// deterministic insert order keeps ids stable across fresh imports
	dayKeys := make([]string, 0, len(sl.Schedules))
	for k := range sl.Schedules {
		dayKeys = append(dayKeys, k)
	}
	sort.Strings(dayKeys)

	inserted := 0
	for _, key := range dayKeys {
		dayType, err := schedule.ParseDayType(key)
		if err != nil {
			return 0, err
		}
		for _, raw := range sl.Schedules[key] {
			t, err := schedule.ParseTimeOfDay(raw)
			if err != nil {
				return 0, err
			}
			added, err := q.CreateScheduleIgnoringDuplicates(ctx, CreateScheduleParams{
				LineID:        line.ID,
				DayType:       string(dayType),
				DepartureTime: int64(t),
				Direction:     toNullString(sl.Direction),
			})
			if err != nil {
				return 0, fmt.Errorf("unable to add departure %s: %w", raw, err)
			}
			if added {
				inserted++
			}
		}
	}
	return inserted, nil
}
