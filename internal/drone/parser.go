package drone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Endpoint paths relative to the API base URL.
const (
	EndpointDrones     = "drones"
	EndpointDroneTypes = "dronetypes"
	EndpointDynamics   = "dronedynamics"
)

var (
	// ErrMissingField reports a record lacking a required field.
	ErrMissingField = errors.New("required field missing")
	// ErrMalformedURL reports a resource link without a trailing numeric id.
	ErrMalformedURL = errors.New("malformed resource url")
)

// Parser decodes one JSON record of the endpoint it declares into a T.
//
// Valid must be called before Parse; records for which it reports false are
// skipped by callers rather than partially constructed.
type Parser[T any] interface {
	Endpoint() string
	Valid(record gjson.Result) bool
	Parse(record gjson.Result) (T, error)
}

var (
	_ Parser[Drone]     = DroneParser{}
	_ Parser[DroneType] = DroneTypeParser{}
	_ Parser[Dynamics]  = DynamicsParser{}
)

var (
	droneFields     = []string{"id", "serialnumber", "carriage_type", "carriage_weight", "dronetype", "created"}
	droneTypeFields = []string{"id", "manufacturer", "typename", "weight", "max_speed", "battery_capacity", "control_range", "max_carriage"}
	dynamicsFields  = []string{"drone", "timestamp", "speed", "align_roll", "align_pitch", "align_yaw", "longitude", "latitude", "battery_status", "last_seen", "status"}
)

// DroneParser decodes records from the drones endpoint.
type DroneParser struct{}

// Endpoint implements Parser.
func (DroneParser) Endpoint() string { return EndpointDrones }

// Valid implements Parser.
func (DroneParser) Valid(record gjson.Result) bool { return hasFields(record, droneFields) }

// Parse implements Parser. The drone type id is taken from the dronetype link.
func (DroneParser) Parse(record gjson.Result) (Drone, error) {
	if err := requireFields(record, droneFields); err != nil {
		return Drone{}, err
	}
	typeURL := record.Get("dronetype").String()
	typeID, err := IDFromURL(typeURL)
	if err != nil {
		return Drone{}, fmt.Errorf("drone %d dronetype: %w", record.Get("id").Int(), err)
	}
	return Drone{
		ID:             record.Get("id").Int(),
		SerialNumber:   record.Get("serialnumber").String(),
		CarriageType:   record.Get("carriage_type").String(),
		CarriageWeight: int(record.Get("carriage_weight").Int()),
		DroneTypeURL:   typeURL,
		DroneTypeID:    typeID,
		Created:        record.Get("created").String(),
	}, nil
}

// DroneTypeParser decodes records from the dronetypes endpoint.
type DroneTypeParser struct{}

// Endpoint implements Parser.
func (DroneTypeParser) Endpoint() string { return EndpointDroneTypes }

// Valid implements Parser.
func (DroneTypeParser) Valid(record gjson.Result) bool { return hasFields(record, droneTypeFields) }

// Parse implements Parser.
func (DroneTypeParser) Parse(record gjson.Result) (DroneType, error) {
	if err := requireFields(record, droneTypeFields); err != nil {
		return DroneType{}, err
	}
	return DroneType{
		ID:              record.Get("id").Int(),
		Manufacturer:    record.Get("manufacturer").String(),
		TypeName:        record.Get("typename").String(),
		Weight:          int(record.Get("weight").Int()),
		MaxSpeed:        int(record.Get("max_speed").Int()),
		BatteryCapacity: int(record.Get("battery_capacity").Int()),
		ControlRange:    int(record.Get("control_range").Int()),
		MaxCarriage:     int(record.Get("max_carriage").Int()),
	}, nil
}

// DynamicsParser decodes telemetry samples.
type DynamicsParser struct {
	// Path overrides the endpoint, e.g. for per-drone sample listings.
	Path string
}

// Endpoint implements Parser.
func (p DynamicsParser) Endpoint() string {
	if p.Path != "" {
		return p.Path
	}
	return EndpointDynamics
}

// Valid implements Parser.
func (DynamicsParser) Valid(record gjson.Result) bool { return hasFields(record, dynamicsFields) }

// Parse implements Parser. The drone id is taken from the drone link.
func (DynamicsParser) Parse(record gjson.Result) (Dynamics, error) {
	if err := requireFields(record, dynamicsFields); err != nil {
		return Dynamics{}, err
	}
	droneURL := record.Get("drone").String()
	droneID, err := IDFromURL(droneURL)
	if err != nil {
		return Dynamics{}, fmt.Errorf("dynamics drone: %w", err)
	}
	return Dynamics{
		DroneURL:      droneURL,
		DroneID:       droneID,
		Timestamp:     record.Get("timestamp").String(),
		Speed:         int(record.Get("speed").Int()),
		AlignRoll:     record.Get("align_roll").Float(),
		AlignPitch:    record.Get("align_pitch").Float(),
		AlignYaw:      record.Get("align_yaw").Float(),
		Longitude:     record.Get("longitude").Float(),
		Latitude:      record.Get("latitude").Float(),
		BatteryStatus: int(record.Get("battery_status").Int()),
		LastSeen:      record.Get("last_seen").String(),
		Status:        record.Get("status").String(),
	}, nil
}

// IDFromURL returns the id referenced by a resource link such as
// "http://host/api/dronetypes/5/": the second-to-last slash-delimited segment.
func IDFromURL(raw string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}
	id, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}
	return id, nil
}

func hasFields(record gjson.Result, fields []string) bool {
	return requireFields(record, fields) == nil
}

func requireFields(record gjson.Result, fields []string) error {
	if !record.IsObject() {
		return fmt.Errorf("%w: record is not an object", ErrMissingField)
	}
	for _, f := range fields {
		if v := record.Get(f); !v.Exists() || v.Type == gjson.Null {
			return fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}
	return nil
}
