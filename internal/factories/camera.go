package factories

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"

	"github.com/chrisdamba/urbanwatch/internal/models"
)

var directions = []string{"North", "South", "East", "West", "Northbound", "Southbound"}

// CameraFactory generates plausible cameras scattered around a city centre.
type CameraFactory struct {
	fake faker.Faker
	rng  *rand.Rand
}

func NewCameraFactory(seed int64) *CameraFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CameraFactory{
		fake: faker.NewWithSeed(rand.NewSource(seed)),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (cf *CameraFactory) CreateCamera(config *models.Config) models.Camera {
	// Approx. conversion from km to degrees
	latRange := config.UrbanRadius / 111.0
	lonRange := latRange / math.Cos(config.CityLat*math.Pi/180.0)

	lat := config.CityLat + (cf.rng.Float64()*2-1)*latRange
	lon := config.CityLon + (cf.rng.Float64()*2-1)*lonRange

	street := cf.fake.Address().StreetName()
	direction := cf.fake.RandomStringElement(directions)

	return models.Camera{
		Key:  cuid.New(),
		Name: fmt.Sprintf("%s %s", street, direction),
		Location: models.Location{
			Lat: clamp(lat, -90, 90),
			Lon: clamp(lon, -180, 180),
		},
		Region:    config.CityName,
		Direction: direction,
	}
}

func (cf *CameraFactory) CreateCameras(config *models.Config, count int) []models.Camera {
	cameras := make([]models.Camera, 0, count)
	for i := 0; i < count; i++ {
		cameras = append(cameras, cf.CreateCamera(config))
	}
	return cameras
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
