package model

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

// Locator is one named search the engine polls independently. Locators
// are built once at configuration load and never mutated afterwards.
type Locator struct {
	Name      string            `mapstructure:"name" validate:"required"`
	SearchKey string            `mapstructure:"search_key" validate:"required"`
	Enabled   *bool             `mapstructure:"enabled"`
	Extra     map[string]string `mapstructure:"extra"`
}

// IsEnabled defaults to true when the config omits the flag.
func (l Locator) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// TemplateContext exposes the locator name plus any extra fields for
// message rendering. Appointment fields win on collision, so the merge
// order is locator first.
func (l Locator) TemplateContext() map[string]string {
	ctx := make(map[string]string, len(l.Extra)+1)
	for k, v := range l.Extra {
		ctx[k] = v
	}
	ctx["name"] = l.Name
	return ctx
}

// SearchFilter is the parsed form of a locator search key. Empty ID
// slices mean no filtering on that dimension.
type SearchFilter struct {
	CityID    int
	ServiceID int
	ClinicIDs []int
	DoctorIDs []int
}

// ParseSearchKey parses the composite "city*service*clinicIDs*doctorIDs"
// key, where the ID lists are comma separated and -1 means unfiltered.
func ParseSearchKey(key string) (SearchFilter, error) {
	parts := strings.Split(strings.TrimSpace(key), "*")
	if len(parts) != 4 {
		return SearchFilter{}, apperrors.NewConfig(
			fmt.Sprintf("search key %q must have 4 components", key), nil)
	}

	cityID, err := strconv.Atoi(parts[0])
	if err != nil {
		return SearchFilter{}, apperrors.NewConfig(fmt.Sprintf("invalid city id in search key %q", key), err)
	}
	serviceID, err := strconv.Atoi(parts[1])
	if err != nil {
		return SearchFilter{}, apperrors.NewConfig(fmt.Sprintf("invalid service id in search key %q", key), err)
	}
	clinicIDs, err := parseIDList(parts[2])
	if err != nil {
		return SearchFilter{}, apperrors.NewConfig(fmt.Sprintf("invalid clinic ids in search key %q", key), err)
	}
	doctorIDs, err := parseIDList(parts[3])
	if err != nil {
		return SearchFilter{}, apperrors.NewConfig(fmt.Sprintf("invalid doctor ids in search key %q", key), err)
	}

	return SearchFilter{
		CityID:    cityID,
		ServiceID: serviceID,
		ClinicIDs: clinicIDs,
		DoctorIDs: doctorIDs,
	}, nil
}

func parseIDList(s string) ([]int, error) {
	var ids []int
	for _, piece := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(piece))
		if err != nil {
			return nil, err
		}
		if id == -1 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
