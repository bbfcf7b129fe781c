package transitdb

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"saquabus.org/internal/appconf"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func line21Path() string {
	return filepath.Join("..", "testdata", "line21.yaml")
}

func TestNewClient_TestEnvRequiresMemory(t *testing.T) {
	_, err := NewClient(NewConfig(filepath.Join(t.TempDir(), "x.db"), appconf.Test, false))
	assert.Error(t, err)
}

func TestImportSeedFile(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	require.NoError(t, client.ImportSeedFile(ctx, line21Path()))

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["lines"])
	assert.Equal(t, 10, counts["stops"])
	assert.Equal(t, 10, counts["stop_on_route"])
	assert.Equal(t, 6, counts["schedules"])
	assert.Equal(t, 1, counts["import_metadata"])

	line, err := client.Queries.GetLineByNumber(ctx, "21")
	require.NoError(t, err)
	assert.Equal(t, "BACAXÁ", line.Origin)
	assert.Equal(t, "MOMBAÇA", line.Destination)

	weekday, err := client.Queries.ListSchedulesForLine(ctx, line.ID, "WEEKDAY")
	require.NoError(t, err)
	require.Len(t, weekday, 3)
	assert.Equal(t, int64(8*3600), weekday[0].DepartureTime)
	assert.Equal(t, int64(9*3600+30*60), weekday[1].DepartureTime)
	assert.Equal(t, int64(11*3600), weekday[2].DepartureTime)

	sor, err := client.Queries.GetStopOnRoute(ctx, line.ID, "8")
	require.NoError(t, err)
	assert.Equal(t, int64(8), sor.Sequence)
	assert.True(t, sor.OffsetMinutes.Valid)
	assert.Equal(t, int64(21), sor.OffsetMinutes.Int64)
}

func TestImportSeed_UnchangedIsSkipped(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	require.NoError(t, client.ImportSeedFile(ctx, line21Path()))
	before, err := client.Queries.GetImportMetadata(ctx, "seed:"+line21Path())
	require.NoError(t, err)

	require.NoError(t, client.ImportSeedFile(ctx, line21Path()))
	after, err := client.Queries.GetImportMetadata(ctx, "seed:"+line21Path())
	require.NoError(t, err)

	assert.Equal(t, before, after)
	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, counts["schedules"])
}

func TestImportSeed_MergesDepartures(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	first := []byte(`
lines:
  - number: "30"
    origin: A
    destination: B
    stops:
      - { name: Alpha, lat: -22.9, lng: -42.5, sequence: 1 }
      - { name: Beta, lat: -22.8, lng: -42.4, sequence: 2 }
    schedules:
      WEEKDAY: ["06:00", "06:00", "07:00"]
`)
	second := []byte(`
lines:
  - number: "30"
    origin: A
    destination: B
    stops:
      - { name: Alpha, lat: -22.9, lng: -42.5, sequence: 1 }
    schedules:
      WEEKDAY: ["07:00", "08:00"]
`)

	require.NoError(t, client.ImportSeed(ctx, first, "lines.yaml"))
	require.NoError(t, client.ImportSeed(ctx, second, "lines.yaml"))

	line, err := client.Queries.GetLineByNumber(ctx, "30")
	require.NoError(t, err)

	deps, err := client.Queries.ListSchedulesForLine(ctx, line.ID, "WEEKDAY")
	require.NoError(t, err)
	assert.Len(t, deps, 3, "duplicates are skipped and later imports add new departures")

	routes, err := client.Queries.ListStopOnRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 1, "stop sequence is replaced on re-import")
	assert.Equal(t, StopIDFor(-22.9, -42.5), routes[0].StopID)
}

func TestParseSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "lines: [::"},
		{"missing origin", `
lines:
  - number: "1"
    destination: B
`},
		{"duplicate sequence", `
lines:
  - number: "1"
    origin: A
    destination: B
    stops:
      - { name: X, lat: 1, lng: 1, sequence: 1 }
      - { name: Y, lat: 2, lng: 2, sequence: 1 }
`},
		{"zero sequence", `
lines:
  - number: "1"
    origin: A
    destination: B
    stops:
      - { name: X, lat: 1, lng: 1, sequence: 0 }
`},
		{"latitude out of range", `
lines:
  - number: "1"
    origin: A
    destination: B
    stops:
      - { name: X, lat: 91, lng: 1, sequence: 1 }
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestImportSeed_BadDayTypeRollsBack(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	err := client.ImportSeed(ctx, []byte(`
lines:
  - number: "9"
    origin: A
    destination: B
    schedules:
      quarta: ["07:00"]
`), "bad.yaml")
	require.Error(t, err)

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts["lines"])
	assert.Equal(t, 0, counts["import_metadata"])
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	params := CreateLineParams{Number: "21", Origin: "A", Destination: "B"}
	_, err := client.Queries.CreateLine(ctx, params)
	require.NoError(t, err)

	_, err = client.Queries.CreateLine(ctx, params)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestCreateStopOnRoute_UnknownStop(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	line, err := client.Queries.CreateLine(ctx, CreateLineParams{Number: "21", Origin: "A", Destination: "B"})
	require.NoError(t, err)

	err = client.Queries.CreateStopOnRoute(ctx, CreateStopOnRouteParams{LineID: line.ID, StopID: "missing", Sequence: 1})
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}

func buildGTFSZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestImportGTFS(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	data := buildGTFSZip(t, map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"SAQ,Saquarema,https://saquarema.example,America/Sao_Paulo\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"R21,SAQ,21,Bacaxá - Mombaça,3\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,Terminal Bacaxá,-22.9200,-42.4800\n" +
			"S2,Boqueirão,-22.9170,-42.4560\n" +
			"S3,Terminal Mombaça,-22.9110,-42.4080\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20301231\n" +
			"SA,0,0,0,0,0,1,0,20240101,20301231\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,direction_id\n" +
			"R21,WK,T1,MOMBAÇA,0\n" +
			"R21,SA,T2,MOMBAÇA,0\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\n" +
			"T1,08:05:00,08:05:00,S2,2\n" +
			"T1,08:10:00,08:10:00,S3,3\n" +
			"T2,09:00:00,09:00:00,S1,1\n" +
			"T2,09:05:00,09:05:00,S2,2\n" +
			"T2,09:10:00,09:10:00,S3,3\n",
	})

	require.NoError(t, client.ImportGTFS(ctx, data, "feed.zip"))

	line, err := client.Queries.GetLineByNumber(ctx, "21")
	require.NoError(t, err)
	assert.Equal(t, "Terminal Bacaxá", line.Origin)
	assert.Equal(t, "MOMBAÇA", line.Destination)
	assert.True(t, line.Polyline.Valid)

	sor, err := client.Queries.GetStopOnRoute(ctx, line.ID, "S3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sor.Sequence)
	assert.Equal(t, int64(10), sor.OffsetMinutes.Int64)

	weekday, err := client.Queries.ListSchedulesForLine(ctx, line.ID, "WEEKDAY")
	require.NoError(t, err)
	require.Len(t, weekday, 1)
	assert.Equal(t, int64(8*3600), weekday[0].DepartureTime)

	saturday, err := client.Queries.ListSchedulesForLine(ctx, line.ID, "SATURDAY")
	require.NoError(t, err)
	require.Len(t, saturday, 1)
	assert.Equal(t, int64(9*3600), saturday[0].DepartureTime)

	sunday, err := client.Queries.ListSchedulesForLine(ctx, line.ID, "SUNDAY_HOLIDAY")
	require.NoError(t, err)
	assert.Empty(t, sunday)
}

func TestImportGTFS_RenumbersStopSequence(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	data := buildGTFSZip(t, map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"SAQ,Saquarema,https://saquarema.example,America/Sao_Paulo\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"R30,SAQ,30,Centro - Itaúna,3\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"C1,Centro,-22.9340,-42.4950\n" +
			"C2,Prefeitura,-22.9140,-42.4320\n" +
			"C3,Praia de Itaúna,-22.9130,-42.4240\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20301231\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,direction_id\n" +
			"R30,WK,T1,ITAÚNA,0\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,07:00:00,07:00:00,C1,0\n" +
			"T1,07:04:00,07:04:00,C2,5\n" +
			"T1,07:09:00,07:09:00,C3,10\n",
	})
	require.NoError(t, client.ImportGTFS(ctx, data, "feed.zip"))

	line, err := client.Queries.GetLineByNumber(ctx, "30")
	require.NoError(t, err)

	for want, stopID := range []string{"C1", "C2", "C3"} {
		sor, err := client.Queries.GetStopOnRoute(ctx, line.ID, stopID)
		require.NoError(t, err)
		assert.Equal(t, int64(want+1), sor.Sequence, stopID)
	}
}

func TestImportGTFS_Malformed(t *testing.T) {
	client := newTestClient(t)
	assert.Error(t, client.ImportGTFS(context.Background(), []byte("not a zip"), "bad.zip"))
}
