package raster

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Layout maps band roles (e.g. "red", "nir") to sensor band numbers.
type Layout map[string]int

// DefaultLayout returns the Landsat 8/9 OLI/TIRS role assignment.
func DefaultLayout() Layout {
	return Layout{
		"blue":     2,
		"green":    3,
		"red":      4,
		"nir":      5,
		"swir1":    6,
		"swir2":    7,
		"thermal1": 10,
		"thermal2": 11,
	}
}

// bandFilePattern matches "landsat_band5.TIF" and "LC08_..._B5.TIF".
var bandFilePattern = regexp.MustCompile(`(?i)(?:band|_b)(\d+)\.tiff?$`)

// BandNumberForFile extracts the sensor band number from a file name.
func BandNumberForFile(path string) (int, bool) {
	m := bandFilePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate rejects empty roles, non-positive band numbers, and band numbers
// claimed by more than one role.
func (l Layout) Validate() error {
	owner := make(map[int]string, len(l))
	for _, role := range l.Roles() {
		band := l[role]
		if role == "" {
			return fmt.Errorf("empty role")
		}
		if band <= 0 {
			return fmt.Errorf("role %q has invalid band %d", role, band)
		}
		if other, ok := owner[band]; ok {
			return fmt.Errorf("band %d assigned to both %q and %q", band, other, role)
		}
		owner[band] = role
	}
	return nil
}

// RoleForFile resolves a band file name to its role under l. Roles are
// tried in Roles order, so a layout that fails Validate still resolves the
// same way on every call.
func (l Layout) RoleForFile(path string) (role string, band int, ok bool) {
	n, ok := BandNumberForFile(path)
	if !ok {
		return "", 0, false
	}
	for _, r := range l.Roles() {
		if l[r] == n {
			return r, n, true
		}
	}
	return "", n, false
}

// Roles returns the layout's roles ordered by band number.
func (l Layout) Roles() []string {
	roles := make([]string, 0, len(l))
	for r := range l {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool {
		if l[roles[i]] != l[roles[j]] {
			return l[roles[i]] < l[roles[j]]
		}
		return roles[i] < roles[j]
	})
	return roles
}
