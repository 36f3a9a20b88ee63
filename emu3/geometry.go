package emu3

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// DiskGeometry is a known EMU3 disk image shape, used to pick sensible
// defaults for Mkfs when the caller doesn't want to specify raw block and
// cluster counts by hand (ground: dargueta-disko's disks.DiskGeometry).
type DiskGeometry struct {
	Slug         string `csv:"slug"`
	Name         string `csv:"name"`
	TotalBlocks  uint32 `csv:"total_blocks"`
	ClusterShift uint8  `csv:"cluster_shift"`
	Notes        string `csv:"notes"`
}

//go:embed disk-geometries.csv
var diskGeometriesRawCSV string

var diskGeometries map[string]DiskGeometry

// diskGeometryOrder holds the slugs in the order they appear in the CSV.
var diskGeometryOrder []string

func init() {
	diskGeometries = make(map[string]DiskGeometry)
	reader := strings.NewReader(diskGeometriesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row DiskGeometry) error {
		if _, exists := diskGeometries[row.Slug]; exists {
			return fmt.Errorf("emu3: duplicate disk geometry slug %q", row.Slug)
		}
		diskGeometries[row.Slug] = row
		diskGeometryOrder = append(diskGeometryOrder, row.Slug)
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// GetPredefinedDiskGeometry looks up a known disk shape by slug, for use with
// Mkfs.
func GetPredefinedDiskGeometry(slug string) (DiskGeometry, error) {
	geometry, ok := diskGeometries[slug]
	if !ok {
		return DiskGeometry{}, fmt.Errorf("emu3: no predefined disk geometry named %q", slug)
	}
	return geometry, nil
}

// ListPredefinedDiskGeometries returns every known geometry, in the order
// they appear in the embedded catalog.
func ListPredefinedDiskGeometries() []DiskGeometry {
	out := make([]DiskGeometry, 0, len(diskGeometryOrder))
	for _, slug := range diskGeometryOrder {
		out = append(out, diskGeometries[slug])
	}
	return out
}
