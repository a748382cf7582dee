package static

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

// ErrMissingTable is returned when a required table is absent from the source.
var ErrMissingTable = errors.New("static table missing")

var csvReaderOnce sync.Once

// tolerateRaggedRows lets rows with missing trailing columns through.
func tolerateRaggedRows() {
	csvReaderOnce.Do(func() {
		gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
			r := csv.NewReader(in)
			r.FieldsPerRecord = -1
			r.TrimLeadingSpace = true
			return r
		})
	})
}

// source opens a named table from a directory or a zip archive.
type source interface {
	open(name string) (io.ReadCloser, error)
	Close() error
}

type dirSource struct{ dir string }

func (s dirSource) open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, name))
}

func (dirSource) Close() error { return nil }

type zipSource struct {
	r     *zip.ReadCloser
	files map[string]*zip.File
}

func (s *zipSource) open(name string) (io.ReadCloser, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return f.Open()
}

func (s *zipSource) Close() error { return s.r.Close() }

func openSource(path string) (source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat static data path: %w", err)
	}
	if info.IsDir() {
		return dirSource{dir: path}, nil
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		// Some feeds nest the tables one directory deep
		files[filepath.Base(f.Name)] = f
	}
	return &zipSource{r: r, files: files}, nil
}

// Load reads stops, trips, stop_times and routes from a directory or a zip
// file. Each table may be named <table>.txt or <table>.csv, and all four are
// required.
func Load(path string) (*Tables, error) {
	tolerateRaggedRows()

	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var (
		stops     []*stopRecord
		trips     []*tripRecord
		stopTimes []*stopTimeRecord
		routes    []*routeRecord
	)

	if err := decodeTable(src, "stops", &stops); err != nil {
		return nil, err
	}
	if err := decodeTable(src, "trips", &trips); err != nil {
		return nil, err
	}
	if err := decodeTable(src, "stop_times", &stopTimes); err != nil {
		return nil, err
	}
	if err := decodeTable(src, "routes", &routes); err != nil {
		return nil, err
	}

	tables := &Tables{
		Stops:     convertStops(stops),
		Trips:     convertTrips(trips),
		StopTimes: convertStopTimes(stopTimes),
		Routes:    convertRoutes(routes),
	}

	log.Info().
		Int("stops", len(tables.Stops)).
		Int("trips", len(tables.Trips)).
		Int("stop_times", len(tables.StopTimes)).
		Int("routes", len(tables.Routes)).
		Str("path", path).
		Msg("Static tables loaded")

	return tables, nil
}

func decodeTable(src source, table string, dest interface{}) error {
	for _, ext := range []string{".txt", ".csv"} {
		name := table + ext
		rc, err := src.open(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}

		err = gocsv.Unmarshal(stripBOM(rc), dest)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", table, ErrMissingTable)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func convertStops(records []*stopRecord) []Stop {
	stops := make([]Stop, 0, len(records))
	rejected := 0
	for _, r := range records {
		id, err := parseID(r.StopID)
		if err != nil {
			rejected++
			continue
		}
		lat, errLat := parseFloat(r.StopLat)
		lon, errLon := parseFloat(r.StopLon)
		if errLat != nil || errLon != nil {
			rejected++
			continue
		}
		stops = append(stops, Stop{StopID: id, StopName: r.StopName, StopLat: lat, StopLon: lon})
	}
	warnRejected("stops", rejected)
	return stops
}

func convertTrips(records []*tripRecord) []Trip {
	trips := make([]Trip, 0, len(records))
	rejected := 0
	for _, r := range records {
		tripID, errTrip := parseID(r.TripID)
		routeID, errRoute := parseID(r.RouteID)
		if errTrip != nil || errRoute != nil {
			rejected++
			continue
		}
		trips = append(trips, Trip{TripID: tripID, RouteID: routeID})
	}
	warnRejected("trips", rejected)
	return trips
}

func convertStopTimes(records []*stopTimeRecord) []StopTime {
	stopTimes := make([]StopTime, 0, len(records))
	rejected := 0
	for _, r := range records {
		tripID, errTrip := parseID(r.TripID)
		stopID, errStop := parseID(r.StopID)
		seq, errSeq := strconv.Atoi(strings.TrimSpace(r.StopSequence))
		if errTrip != nil || errStop != nil || errSeq != nil {
			rejected++
			continue
		}
		stopTimes = append(stopTimes, StopTime{
			TripID:        tripID,
			StopID:        stopID,
			StopSequence:  seq,
			ArrivalTime:   strings.TrimSpace(r.ArrivalTime),
			DepartureTime: strings.TrimSpace(r.DepartureTime),
		})
	}
	warnRejected("stop_times", rejected)
	return stopTimes
}

func convertRoutes(records []*routeRecord) []Route {
	routes := make([]Route, 0, len(records))
	rejected := 0
	for _, r := range records {
		id, err := parseID(r.RouteID)
		if err != nil {
			rejected++
			continue
		}
		routes = append(routes, Route{RouteID: id, RouteShortName: strings.TrimSpace(r.RouteShortName)})
	}
	warnRejected("routes", rejected)
	return routes
}

func warnRejected(table string, n int) {
	if n > 0 {
		log.Warn().Str("table", table).Int("rejected", n).Msg("Rows with non-integer keys dropped")
	}
}
