package luxmed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

// City is one dictionary city entry.
type City struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ServiceVariant is one service entry, flattened from the portal's
// nested variant groups.
type ServiceVariant struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Telemedicine bool   `json:"telemedicine"`
}

type serviceVariantGroup struct {
	ID             int                   `json:"id"`
	Name           string                `json:"name"`
	IsTelemedicine bool                  `json:"isTelemedicine"`
	Children       []serviceVariantGroup `json:"children"`
}

// FacilitiesAndDoctors holds the per-city, per-service directory used
// when composing search keys.
type FacilitiesAndDoctors struct {
	Facilities []Facility `json:"facilities"`
	Doctors    []Doctor   `json:"doctors"`
}

type Facility struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Doctor struct {
	ID            int    `json:"id"`
	AcademicTitle string `json:"academicTitle"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
}

func (d Doctor) DisplayName() string {
	return doctorDisplayName(d.AcademicTitle, d.LastName, d.FirstName)
}

// Dictionary wraps the portal dictionary endpoints with a TTL cache;
// the directories change rarely and the dump tool hits them hard.
type Dictionary struct {
	client *Client
	cache  *gocache.Cache
}

func NewDictionary(client *Client) *Dictionary {
	return &Dictionary{
		client: client,
		cache:  gocache.New(time.Hour, 10*time.Minute),
	}
}

func (d *Dictionary) Cities(ctx context.Context) ([]City, error) {
	if cached, ok := d.cache.Get("cities"); ok {
		return cached.([]City), nil
	}

	var cities []City
	if err := d.client.get(ctx, dictionaryCitiesPath, nil, &cities); err != nil {
		return nil, apperrors.NewAdapter("cities dictionary query failed", err)
	}
	d.cache.SetDefault("cities", cities)
	return cities, nil
}

// Services flattens the three-level variant group tree the portal
// exposes into a single list.
func (d *Dictionary) Services(ctx context.Context) ([]ServiceVariant, error) {
	if cached, ok := d.cache.Get("services"); ok {
		return cached.([]ServiceVariant), nil
	}

	var groups []serviceVariantGroup
	if err := d.client.get(ctx, dictionaryServicesPath, nil, &groups); err != nil {
		return nil, apperrors.NewAdapter("services dictionary query failed", err)
	}

	var services []ServiceVariant
	var walk func(group serviceVariantGroup)
	walk = func(group serviceVariantGroup) {
		services = append(services, ServiceVariant{
			ID:           group.ID,
			Name:         group.Name,
			Telemedicine: group.IsTelemedicine,
		})
		for _, child := range group.Children {
			walk(child)
		}
	}
	for _, group := range groups {
		walk(group)
	}

	d.cache.SetDefault("services", services)
	return services, nil
}

func (d *Dictionary) FacilitiesAndDoctors(ctx context.Context, cityID, serviceVariantID int) (*FacilitiesAndDoctors, error) {
	key := fmt.Sprintf("fad:%d:%d", cityID, serviceVariantID)
	if cached, ok := d.cache.Get(key); ok {
		return cached.(*FacilitiesAndDoctors), nil
	}

	query := map[string][]string{
		"cityId":           {strconv.Itoa(cityID)},
		"serviceVariantId": {strconv.Itoa(serviceVariantID)},
	}
	var result FacilitiesAndDoctors
	if err := d.client.get(ctx, dictionaryFacilitiesPath, query, &result); err != nil {
		return nil, apperrors.NewAdapter("facilities dictionary query failed", err)
	}
	d.cache.SetDefault(key, &result)
	return &result, nil
}
