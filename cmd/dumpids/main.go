// Command dumpids logs in to the patient portal and dumps the city,
// service and facility/doctor dictionaries as JSON, for users composing
// locator search keys.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jwalitptl/slot-sniper/internal/config"
	"github.com/jwalitptl/slot-sniper/internal/luxmed"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
)

type doctorEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type cityServiceDump struct {
	Facilities []luxmed.Facility `json:"facilities"`
	Doctors    []doctorEntry     `json:"doctors"`
}

func main() {
	configFiles := flag.String("config", "config.yaml", "comma-separated configuration file paths")
	outDir := flag.String("out", "luxmed-ids", "output directory")
	cityWildcard := flag.String("city", "", "only dump facilities and doctors for cities matching this wildcard")
	withDoctors := flag.Bool("doctors", false, "also dump facilities and doctors (many requests)")
	flag.Parse()

	log := logger.NewLogger(nil)

	cfg, err := config.Load(strings.Split(*configFiles, ",")...)
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	ctx := context.Background()

	client, err := luxmed.NewClient(cfg.Luxmed, log)
	if err != nil {
		log.Fatal(err, "failed to set up portal client")
	}
	if err := client.LogIn(ctx, cfg.Luxmed.Email, cfg.Luxmed.Password); err != nil {
		log.Fatal(err, "portal login failed")
	}

	dict := luxmed.NewDictionary(client)

	cities, err := dict.Cities(ctx)
	if err != nil {
		log.Fatal(err, "failed to fetch cities")
	}
	log.Info("fetched cities", "count", len(cities))

	services, err := dict.Services(ctx)
	if err != nil {
		log.Fatal(err, "failed to fetch services")
	}
	log.Info("fetched services", "count", len(services))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err, "failed to create output directory")
	}
	writeJSON(log, filepath.Join(*outDir, "ids-cities.json"), cities)
	writeJSON(log, filepath.Join(*outDir, "ids-services.json"), services)

	if !*withDoctors {
		return
	}

	// Per city, per service. This is a lot of requests; the wildcard
	// keeps it manageable.
	dump := map[int]map[int]cityServiceDump{}
	for _, city := range cities {
		if *cityWildcard != "" {
			matched, err := path.Match(*cityWildcard, city.Name)
			if err != nil {
				log.Fatal(err, "invalid city wildcard")
			}
			if !matched {
				log.Info("skipping city", "city", city.Name)
				continue
			}
		}

		log.Info("fetching facilities and doctors", "city", city.Name)
		dump[city.ID] = map[int]cityServiceDump{}
		for _, service := range services {
			fad, err := dict.FacilitiesAndDoctors(ctx, city.ID, service.ID)
			if err != nil {
				log.Error(err, "facilities lookup failed", "city", city.Name, "service", service.Name)
				continue
			}
			entry := cityServiceDump{Facilities: fad.Facilities}
			for _, d := range fad.Doctors {
				entry.Doctors = append(entry.Doctors, doctorEntry{ID: d.ID, Name: d.DisplayName()})
			}
			dump[city.ID][service.ID] = entry
		}
	}
	writeJSON(log, filepath.Join(*outDir, "ids-facilities-doctors.json"), dump)
}

func writeJSON(log *logger.Logger, path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err, "failed to marshal dump", "path", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal(err, "failed to write dump", "path", path)
	}
	log.Info("wrote dump", "path", path)
}
